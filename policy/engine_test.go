package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewDefaultEngine(ctx)
	require.NoError(t, err)

	cases := []struct {
		name string
		in   Input
		want Decision
	}{
		{"existing session", Input{SessionExists: true, AllowImplicit: false, Mode: "call"}, DecisionAllow},
		{"existing session implicit allowed", Input{SessionExists: true, AllowImplicit: true}, DecisionAllow},
		{"unknown session implicit allowed", Input{SessionExists: false, AllowImplicit: true, Mode: "chat"}, DecisionBootstrap},
		{"unknown session implicit disabled", Input{SessionExists: false, AllowImplicit: false}, DecisionReject},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.Decide(ctx, tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCustomPolicyRejectsChatBootstrap(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, `
package session_bootstrap

default decision = "reject"

decision = "allow" {
	input.session_exists
}

decision = "bootstrap" {
	not input.session_exists
	input.mode == "call"
}
`)
	require.NoError(t, err)

	got, err := engine.Decide(ctx, Input{Mode: "chat", AllowImplicit: true})
	require.NoError(t, err)
	assert.Equal(t, DecisionReject, got)

	got, err = engine.Decide(ctx, Input{Mode: "call"})
	require.NoError(t, err)
	assert.Equal(t, DecisionBootstrap, got)
}

func TestUnknownDecisionIsAnError(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, `
package session_bootstrap

decision = "maybe"
`)
	require.NoError(t, err)

	_, err = engine.Decide(ctx, Input{})
	assert.Error(t, err)
}

func TestInvalidPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package session_bootstrap\n\ndecision = {")
	assert.Error(t, err)
}
