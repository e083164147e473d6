// Package catalog loads the model catalogs and resolves the generation model
// and synthesis voice for a turn.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrEmptyCatalog is returned when a catalog has nothing to select from.
var ErrEmptyCatalog = errors.New("empty catalog")

// LLMModel is one generation model of a hardware tier.
type LLMModel struct {
	Name      string `json:"name"`
	OllamaTag string `json:"ollama_tag"`
	Role      string `json:"role"`
	IsPrimary bool   `json:"is_primary_recommendation"`
}

// HardwareTier groups the models suited to a memory range. A nil MaxRAMGB
// leaves the range unbounded above.
type HardwareTier struct {
	TierID   string     `json:"tier_id"`
	MinRAMGB float64    `json:"min_ram_gb"`
	MaxRAMGB *float64   `json:"max_ram_gb"`
	Models   []LLMModel `json:"models"`
}

// Contains reports whether ramGB falls within the tier's inclusive range.
func (t HardwareTier) Contains(ramGB float64) bool {
	if ramGB < t.MinRAMGB {
		return false
	}
	return t.MaxRAMGB == nil || ramGB <= *t.MaxRAMGB
}

// LLMCatalog is the generation model catalog.
type LLMCatalog struct {
	HardwareTiers []HardwareTier `json:"hardware_tiers"`
}

// VoiceProfile describes one synthesis model and its speakers.
type VoiceProfile struct {
	Model         string   `json:"model"`
	FullModelName string   `json:"full_model_name"`
	Language      string   `json:"language,omitempty"`
	Speakers      []string `json:"available_speaker_ids,omitempty"`
	Default       bool     `json:"default,omitempty"`
	Endpoint      string   `json:"endpoint,omitempty"`
}

// VoiceCatalog is the list of voice profiles. It decodes from either a single
// profile object or an array of them.
type VoiceCatalog []VoiceProfile

func (c *VoiceCatalog) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var single VoiceProfile
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return err
		}
		*c = VoiceCatalog{single}
		return nil
	}
	var list []VoiceProfile
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return err
	}
	*c = list
	return nil
}

// Find returns the profile with the given model id.
func (c VoiceCatalog) Find(model string) (VoiceProfile, bool) {
	for _, p := range c {
		if p.Model == model {
			return p, true
		}
	}
	return VoiceProfile{}, false
}

// LoadLLMCatalog reads the generation catalog from a JSON file.
func LoadLLMCatalog(path string) (*LLMCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read llm catalog: %w", err)
	}
	var c LLMCatalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse llm catalog %s: %w", path, err)
	}
	return &c, nil
}

// LoadVoiceCatalog reads the voice catalog from a JSON file.
func LoadVoiceCatalog(path string) (VoiceCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tts catalog: %w", err)
	}
	var c VoiceCatalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse tts catalog %s: %w", path, err)
	}
	return c, nil
}

// Load reads both catalogs.
func Load(llmPath, ttsPath string) (*LLMCatalog, VoiceCatalog, error) {
	llm, err := LoadLLMCatalog(llmPath)
	if err != nil {
		return nil, nil, err
	}
	voices, err := LoadVoiceCatalog(ttsPath)
	if err != nil {
		return nil, nil, err
	}
	return llm, voices, nil
}
