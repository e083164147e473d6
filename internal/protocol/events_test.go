package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAddsTypeDiscriminator(t *testing.T) {
	cases := []struct {
		ev   Event
		want string
	}{
		{Transcription("hello"), `{"type":"transcription","text":"hello"}`},
		{Status(StateThinking), `{"type":"status","status":"thinking"}`},
		{TextResponse("hi there"), `{"type":"text_response","text":"hi there"}`},
		{AudioURL("/output/a.wav"), `{"type":"audio_url","url":"/output/a.wav"}`},
		{Error("boom"), `{"type":"error","message":"boom"}`},
	}
	for _, tc := range cases {
		data, err := Encode(tc.ev)
		require.NoError(t, err)
		assert.JSONEq(t, tc.want, string(data))
	}
}

func TestDecodeReturnsTypedEvent(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"status","status":"idle"}`))
	require.NoError(t, err)
	assert.Equal(t, StatusEvent{Status: StateIdle}, ev)

	ev, err = Decode([]byte(`{"type":"audio_url","url":"https://x/y.wav"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeAudioURL, ev.Type())
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"delta","text":"x"}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestSchemasCoverEveryEvent(t *testing.T) {
	schemas := Schemas()
	for _, typ := range []string{TypeTranscription, TypeStatus, TypeTextResponse, TypeAudioURL, TypeError, TypeConfig} {
		s, ok := schemas[typ]
		require.True(t, ok, typ)
		data, err := json.Marshal(s)
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	}
}
