package main

import (
	"testing"

	"github.com/speechcoach/coach/internal/protocol"
)

func TestRenderStopsOnIdleOrError(t *testing.T) {
	cases := []struct {
		ev   protocol.Event
		done bool
	}{
		{protocol.Transcription("hi"), false},
		{protocol.Status(protocol.StateThinking), false},
		{protocol.TextResponse("hello"), false},
		{protocol.AudioURL("/output/a.wav"), false},
		{protocol.Status(protocol.StateIdle), true},
		{protocol.Error("boom"), true},
	}
	for _, tc := range cases {
		if got := render(tc.ev); got != tc.done {
			t.Fatalf("render(%T) = %v, want %v", tc.ev, got, tc.done)
		}
	}
}
