// Package service implements the coach's turn pipeline and session operations.
package service

import (
	"github.com/speechcoach/coach/internal/adapter/llm"
	"github.com/speechcoach/coach/internal/adapter/stt"
	"github.com/speechcoach/coach/internal/adapter/tts"
	"github.com/speechcoach/coach/internal/artifact"
	"github.com/speechcoach/coach/internal/catalog"
	"github.com/speechcoach/coach/internal/config"
	"github.com/speechcoach/coach/internal/repository"
	"github.com/speechcoach/coach/internal/telemetry"
	"github.com/speechcoach/coach/internal/workerpool"
	"github.com/speechcoach/coach/policy"
)

// Engines groups the three external engine clients a turn calls.
type Engines struct {
	Transcriber stt.Transcriber
	Generator   llm.Generator
	Synthesizer tts.Synthesizer
}

type Service struct {
	store        repository.Store
	artifacts    artifact.Store
	engines      Engines
	resolver     *catalog.Resolver
	pool         *workerpool.Pool
	policyEngine *policy.Engine
	metrics      *telemetry.Metrics
	config       *config.Config
}

func New(
	store repository.Store,
	artifacts artifact.Store,
	engines Engines,
	resolver *catalog.Resolver,
	pool *workerpool.Pool,
	policyEngine *policy.Engine,
	metrics *telemetry.Metrics,
	cfg *config.Config,
) *Service {
	return &Service{
		store:        store,
		artifacts:    artifacts,
		engines:      engines,
		resolver:     resolver,
		pool:         pool,
		policyEngine: policyEngine,
		metrics:      metrics,
		config:       cfg,
	}
}

// Resolver returns the model and voice resolver.
func (s *Service) Resolver() *catalog.Resolver {
	return s.resolver
}
