package catalog

import "fmt"

// Voice is the resolved synthesis configuration of one turn.
type Voice struct {
	Model         string
	FullModelName string
	Language      string
	Speaker       string
	Endpoint      string
}

// Resolver holds the process-wide defaults, computed once, and applies
// per-request overrides on top of them.
type Resolver struct {
	llm            *LLMCatalog
	voices         VoiceCatalog
	ramGB          float64
	tier           HardwareTier
	defaultModel   string
	defaultVoice   VoiceProfile
	defaultSpeaker string
}

// NewResolver selects the default model for ramGB and the default voice.
func NewResolver(llm *LLMCatalog, voices VoiceCatalog, ramGB float64) (*Resolver, error) {
	if llm == nil {
		return nil, fmt.Errorf("%w: missing llm catalog", ErrEmptyCatalog)
	}
	tier, err := SelectTier(llm.HardwareTiers, ramGB)
	if err != nil {
		return nil, err
	}
	model, err := SelectModel(tier)
	if err != nil {
		return nil, err
	}
	voice, err := SelectVoice(voices)
	if err != nil {
		return nil, err
	}

	r := &Resolver{
		llm:            llm,
		voices:         voices,
		ramGB:          ramGB,
		tier:           tier,
		defaultModel:   model.OllamaTag,
		defaultVoice:   voice,
		defaultSpeaker: DefaultSpeaker(voice),
	}
	logger.Info("resolved defaults",
		"ram_gb", fmt.Sprintf("%.1f", ramGB),
		"tier", tier.TierID,
		"model", r.defaultModel,
		"tts_model", voice.Model,
		"speaker", r.defaultSpeaker)
	return r, nil
}

// DefaultModel returns the generation model used when no override is given.
func (r *Resolver) DefaultModel() string { return r.defaultModel }

// DefaultVoice returns the default voice profile.
func (r *Resolver) DefaultVoice() VoiceProfile { return r.defaultVoice }

// DefaultSpeaker returns the default speaker of the default voice.
func (r *Resolver) DefaultSpeaker() string { return r.defaultSpeaker }

// Tier returns the hardware tier the default model came from.
func (r *Resolver) Tier() HardwareTier { return r.tier }

// RAMGB returns the memory size the defaults were computed for.
func (r *Resolver) RAMGB() float64 { return r.ramGB }

// LLMCatalog returns the loaded generation catalog.
func (r *Resolver) LLMCatalog() *LLMCatalog { return r.llm }

// Voices returns the loaded voice catalog.
func (r *Resolver) Voices() VoiceCatalog { return r.voices }

// Model returns override when set, else the default model.
func (r *Resolver) Model(override string) string {
	if override != "" {
		return override
	}
	return r.defaultModel
}

// Voice resolves the profile for ttsModel, falling back to the default
// profile for an empty or unknown id. The speaker override applies only to
// profiles that declare speakers.
func (r *Resolver) Voice(ttsModel, speaker string) Voice {
	profile := r.defaultVoice
	if ttsModel != "" {
		if p, ok := r.voices.Find(ttsModel); ok {
			profile = p
		} else {
			logger.Warn("unknown tts model, using default", "tts_model", ttsModel, "default", profile.Model)
		}
	}

	v := Voice{
		Model:         profile.Model,
		FullModelName: profile.FullModelName,
		Language:      profile.Language,
		Endpoint:      profile.Endpoint,
	}
	if len(profile.Speakers) > 0 {
		v.Speaker = speaker
		if v.Speaker == "" {
			v.Speaker = DefaultSpeaker(profile)
		}
	}
	return v
}
