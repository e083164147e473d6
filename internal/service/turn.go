package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/speechcoach/coach/internal/artifact"
	"github.com/speechcoach/coach/internal/domain"
	"github.com/speechcoach/coach/internal/protocol"
	"github.com/speechcoach/coach/internal/telemetry"
	"github.com/speechcoach/coach/internal/workerpool"
	"github.com/speechcoach/coach/policy"
)

// RunTurn runs one turn: transcribe, build context, generate, synthesize,
// then persist the reply and notify. Stages run strictly in order. A failing
// stage aborts the rest of the turn, emits a single error event and returns a
// *domain.StageError; writes made by earlier stages are kept.
func (s *Service) RunTurn(ctx context.Context, req domain.TurnRequest, notify Notifier) (*domain.TurnResult, error) {
	if notify == nil {
		notify = Discard
	}
	ctx, span := tracer.Start(ctx, "turn", trace.WithAttributes(
		attribute.String("session.id", req.SessionID),
		attribute.Bool("turn.text", req.Text != nil),
	))
	defer span.End()

	start := time.Now()
	result, err := s.runTurn(ctx, req, notify)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.TurnFinished(telemetry.OutcomeFailed)

		var stage domain.Stage
		var se *domain.StageError
		if errors.As(err, &se) {
			stage = se.Stage
		}
		logger.ErrorContext(ctx, "turn failed",
			"session_id", req.SessionID,
			"stage", stage,
			"code", domain.Code(err),
			"error", err)
		notify.Send(req.SessionID, protocol.Error(err.Error()))
		return nil, err
	}

	s.metrics.TurnFinished(telemetry.OutcomeCompleted)
	logger.InfoContext(ctx, "turn completed",
		"session_id", req.SessionID,
		"transcript_len", len(result.Transcript),
		"reply_len", len(result.Reply),
		"duration", time.Since(start))
	return result, nil
}

func (s *Service) runTurn(ctx context.Context, req domain.TurnRequest, notify Notifier) (*domain.TurnResult, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		return nil, domain.NewStageError(domain.StageBootstrap, sessionID, domain.ErrInvalidInput, errors.New("session_id is required"))
	}

	var session *domain.Session
	err := s.stage(ctx, domain.StageBootstrap, sessionID, func(ctx context.Context) error {
		var err error
		session, err = s.ensureSession(ctx, sessionID, req.Mode)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Transcribe
	var transcript string
	var userMsg *domain.Message
	err = s.stage(ctx, domain.StageTranscribe, sessionID, func(ctx context.Context) error {
		if req.Text != nil {
			transcript = *req.Text
		} else {
			text, err := workerpool.Submit(ctx, s.pool, func(ctx context.Context) (string, error) {
				return s.engines.Transcriber.Transcribe(ctx, req.Audio)
			}).Await(ctx)
			if err != nil {
				return domain.NewStageError(domain.StageTranscribe, sessionID, domain.ErrTranscription, err)
			}
			transcript = text
		}

		userMsg = &domain.Message{SessionID: sessionID, Sender: domain.SenderUser, Text: domain.StringPtr(transcript)}
		if err := s.store.AppendMessage(ctx, userMsg); err != nil {
			return domain.NewStageError(domain.StageTranscribe, sessionID, domain.ErrStorage, err)
		}
		notify.Send(sessionID, protocol.Transcription(transcript))
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Context
	var history []domain.ChatMessage
	err = s.stage(ctx, domain.StageContext, sessionID, func(ctx context.Context) error {
		var err error
		history, err = s.buildContext(ctx, sessionID, userMsg.ID, transcript)
		if err != nil {
			return domain.NewStageError(domain.StageContext, sessionID, domain.ErrStorage, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Generate
	model := s.resolver.Model(preferredModel(req.Options.Model, session))
	var reply string
	err = s.stage(ctx, domain.StageGenerate, sessionID, func(ctx context.Context) error {
		notify.Send(sessionID, protocol.Status(protocol.StateThinking))
		text, err := workerpool.Submit(ctx, s.pool, func(ctx context.Context) (string, error) {
			return s.engines.Generator.Generate(ctx, history, model)
		}).Await(ctx)
		if err != nil {
			return domain.NewStageError(domain.StageGenerate, sessionID, domain.ErrGeneration, fmt.Errorf("model %s: %w", model, err))
		}
		reply = text
		notify.Send(sessionID, protocol.TextResponse(reply))
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Synthesize
	voice := s.resolver.Voice(req.Options.TTSModel, req.Options.Speaker)
	var audio []byte
	err = s.stage(ctx, domain.StageSynthesize, sessionID, func(ctx context.Context) error {
		notify.Send(sessionID, protocol.Status(protocol.StateSpeaking))
		data, err := workerpool.Submit(ctx, s.pool, func(ctx context.Context) ([]byte, error) {
			return s.engines.Synthesizer.Synthesize(ctx, reply, voice)
		}).Await(ctx)
		if err != nil {
			return domain.NewStageError(domain.StageSynthesize, sessionID, domain.ErrSynthesis, fmt.Errorf("voice %s: %w", voice.Model, err))
		}
		audio = data
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Persist & notify
	var audioURL string
	err = s.stage(ctx, domain.StagePersist, sessionID, func(ctx context.Context) error {
		url, err := s.persistReply(ctx, sessionID, reply, audio)
		if err != nil {
			return domain.NewStageError(domain.StagePersist, sessionID, domain.ErrStorage, err)
		}
		audioURL = url
		notify.Send(sessionID, protocol.AudioURL(audioURL))
		notify.Send(sessionID, protocol.Status(protocol.StateIdle))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &domain.TurnResult{
		SessionID:  sessionID,
		Transcript: transcript,
		Reply:      reply,
		AudioURL:   audioURL,
	}, nil
}

// ensureSession asks the bootstrap policy what to do with sessionID and
// creates the session when told to.
func (s *Service) ensureSession(ctx context.Context, sessionID string, mode domain.SessionMode) (*domain.Session, error) {
	if !mode.Valid() {
		mode = domain.DefaultMode
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, domain.NewStageError(domain.StageBootstrap, sessionID, domain.ErrStorage, err)
	}

	decision, err := s.policyEngine.Decide(ctx, policy.Input{
		SessionExists: session != nil,
		AllowImplicit: s.config.AllowImplicitSessions,
		Mode:          string(mode),
	})
	if err != nil {
		return nil, domain.NewStageError(domain.StageBootstrap, sessionID, domain.ErrUnknownSession, err)
	}

	switch decision {
	case policy.DecisionAllow:
		if session == nil {
			return nil, domain.NewStageError(domain.StageBootstrap, sessionID, domain.ErrUnknownSession, nil)
		}
		return session, nil
	case policy.DecisionBootstrap:
		session, created, err := s.store.GetOrCreateSession(ctx, sessionID, mode)
		if err != nil {
			return nil, domain.NewStageError(domain.StageBootstrap, sessionID, domain.ErrStorage, err)
		}
		if created {
			logger.InfoContext(ctx, "session created implicitly", "session_id", sessionID, "mode", mode)
		}
		return session, nil
	}
	return nil, domain.NewStageError(domain.StageBootstrap, sessionID, domain.ErrUnknownSession, fmt.Errorf("session %s rejected", sessionID))
}

// persistReply saves the audio and then logs the coach message referencing it.
func (s *Service) persistReply(ctx context.Context, sessionID, reply string, audio []byte) (string, error) {
	url, err := s.artifacts.Save(ctx, audio, artifact.NewKey())
	if err != nil {
		return "", fmt.Errorf("failed to save audio: %w", err)
	}
	msg := &domain.Message{
		SessionID: sessionID,
		Sender:    domain.SenderCoach,
		Text:      domain.StringPtr(reply),
		AudioPath: domain.StringPtr(url),
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return "", fmt.Errorf("failed to save coach message: %w", err)
	}
	return url, nil
}

// stage runs fn inside a span and records its duration.
func (s *Service) stage(ctx context.Context, stage domain.Stage, sessionID string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, string(stage))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	s.metrics.ObserveStage(string(stage), elapsed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	logger.DebugContext(ctx, "stage done", "session_id", sessionID, "stage", stage, "duration", elapsed)
	return nil
}

// preferredModel picks the request override, then the session's model.
func preferredModel(override string, session *domain.Session) string {
	if override != "" {
		return override
	}
	if session != nil && session.Model != nil {
		return *session.Model
	}
	return ""
}

