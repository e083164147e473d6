// Package main provides a command line client for the coach's call websocket.
// Each WAV file sent is one spoken turn; the coach's events are printed as
// they arrive.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/speechcoach/coach/internal/protocol"
)

var (
	labelStyle   = lipgloss.NewStyle().Bold(true).Width(8)
	youStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	coachStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	audioStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Underline(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	sessionStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Client is a call websocket client bound to one session.
type Client struct {
	conn      *websocket.Conn
	sessionID string
	timeout   time.Duration
}

// NewClient connects to the call endpoint of sessionID.
func NewClient(base, sessionID string, overrides url.Values, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse address: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/ws/call/" + url.PathEscape(sessionID)
	u.RawQuery = overrides.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &Client{conn: conn, sessionID: sessionID, timeout: timeout}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

// SendConfig changes the overrides used by later turns.
func (c *Client) SendConfig(model, speaker, ttsModel *string) error {
	return c.conn.WriteJSON(protocol.ConfigMessage{
		Type:     protocol.TypeConfig,
		Model:    model,
		Speaker:  speaker,
		TTSModel: ttsModel,
	})
}

// SendAudio sends one WAV file as a turn and prints events until the coach
// is idle again or reports an error.
func (c *Client) SendAudio(path string) error {
	audio, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	fmt.Println(statusStyle.Render(fmt.Sprintf("sent %s (%d bytes)", path, len(audio))))

	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.timeout))
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read event: %w", err)
		}
		ev, err := protocol.Decode(data)
		if err != nil {
			log.Printf("Unknown event: %s", data)
			continue
		}
		if done := render(ev); done {
			return nil
		}
	}
}

// render prints ev and reports whether the turn is over.
func render(ev protocol.Event) bool {
	switch e := ev.(type) {
	case protocol.TranscriptionEvent:
		fmt.Println(labelStyle.Render("you") + youStyle.Render(e.Text))
	case protocol.TextResponseEvent:
		fmt.Println(labelStyle.Render("coach") + coachStyle.Render(e.Text))
	case protocol.AudioURLEvent:
		fmt.Println(labelStyle.Render("audio") + audioStyle.Render(e.URL))
	case protocol.StatusEvent:
		fmt.Println(statusStyle.Render("... " + string(e.Status)))
		return e.Status == protocol.StateIdle
	case protocol.ErrorEvent:
		fmt.Println(labelStyle.Render("error") + errorStyle.Render(e.Message))
		return true
	}
	return false
}

func main() {
	addr := flag.String("addr", "http://localhost:8000", "Coach server address")
	sessionID := flag.String("session", "", "Session ID (a new one is generated when empty)")
	model := flag.String("model", "", "Generation model override")
	speaker := flag.String("speaker", "", "Speaker override")
	ttsModel := flag.String("tts-model", "", "Voice model override")
	timeout := flag.Duration("timeout", 5*time.Minute, "How long to wait for each event")
	flag.Parse()

	log.SetFlags(log.Ltime)

	if *sessionID == "" {
		*sessionID = uuid.NewString()
	}
	overrides := url.Values{}
	for k, v := range map[string]string{"model": *model, "speaker": *speaker, "tts_model": *ttsModel} {
		if v != "" {
			overrides.Set(k, v)
		}
	}

	client, err := NewClient(*addr, *sessionID, overrides, *timeout)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	fmt.Println(sessionStyle.Render("session " + client.sessionID))

	// Files on the command line are sent in order, then we exit.
	if flag.NArg() > 0 {
		for _, path := range flag.Args() {
			if err := client.SendAudio(path); err != nil {
				log.Fatalf("Turn failed: %v", err)
			}
		}
		return
	}

	fmt.Println("Enter a WAV file path to send it.")
	fmt.Println("Commands: /model <tag>, /speaker <id>, /voice <model>, /quit")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	for {
		fmt.Print("> ")
		select {
		case <-interrupt:
			fmt.Println("\nInterrupted")
			return
		case input, ok := <-lines:
			if !ok || input == "/quit" {
				return
			}
			if input == "" {
				continue
			}
			if err := handleInput(client, input); err != nil {
				log.Printf("Error: %v", err)
			}
		}
	}
}

func handleInput(client *Client, input string) error {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/model":
		return client.SendConfig(&arg, nil, nil)
	case "/speaker":
		return client.SendConfig(nil, &arg, nil)
	case "/voice":
		return client.SendConfig(nil, nil, &arg)
	}
	if strings.HasPrefix(cmd, "/") {
		return errors.New("unknown command " + cmd)
	}
	return client.SendAudio(input)
}
