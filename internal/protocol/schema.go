package protocol

import "github.com/invopop/jsonschema"

// Schemas returns the JSON schema of every event payload keyed by event
// type, plus the inbound config message.
func Schemas() map[string]*jsonschema.Schema {
	r := &jsonschema.Reflector{DoNotReference: true}
	return map[string]*jsonschema.Schema{
		TypeTranscription: r.Reflect(&TranscriptionEvent{}),
		TypeStatus:        r.Reflect(&StatusEvent{}),
		TypeTextResponse:  r.Reflect(&TextResponseEvent{}),
		TypeAudioURL:      r.Reflect(&AudioURLEvent{}),
		TypeError:         r.Reflect(&ErrorEvent{}),
		TypeConfig:        r.Reflect(&ConfigMessage{}),
	}
}
