// Package policy decides whether a turn may run against a session id.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decision is the outcome of the session bootstrap policy.
type Decision string

const (
	// DecisionAllow means the session exists and the turn may run.
	DecisionAllow Decision = "allow"
	// DecisionBootstrap means the session must be created before the turn runs.
	DecisionBootstrap Decision = "bootstrap"
	// DecisionReject means the turn must fail with an unknown session error.
	DecisionReject Decision = "reject"
)

// Input is the document the policy is evaluated against.
type Input struct {
	SessionExists bool   `json:"session_exists"`
	AllowImplicit bool   `json:"allow_implicit"`
	Mode          string `json:"mode"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.session_bootstrap.decision"),
		rego.Module("session_bootstrap.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewDefaultEngine creates an engine running DefaultPolicy.
func NewDefaultEngine(ctx context.Context) (*Engine, error) {
	return NewEngine(ctx, DefaultPolicy)
}

// Decide evaluates the policy. A policy that yields nothing rejects.
func (e *Engine) Decide(ctx context.Context, in Input) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(in))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionReject, nil
	}

	s, ok := results[0].Expressions[0].Value.(string)
	if !ok {
		return "", fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}
	switch d := Decision(s); d {
	case DecisionAllow, DecisionBootstrap, DecisionReject:
		return d, nil
	}
	return "", fmt.Errorf("unknown policy decision %q", s)
}

// DefaultPolicy creates unknown sessions only when implicit sessions are allowed.
const DefaultPolicy = `
package session_bootstrap

default decision = "reject"

decision = "allow" {
	input.session_exists
}

decision = "bootstrap" {
	not input.session_exists
	input.allow_implicit
}
`
