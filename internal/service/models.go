package service

import (
	"github.com/jinzhu/copier"
)

// LLMModelInfo is one generation model as listed by the models endpoint.
type LLMModelInfo struct {
	Name      string `json:"name"`
	OllamaTag string `json:"tag"`
	Role      string `json:"role"`
	Tier      string `json:"tier"`
	IsPrimary bool   `json:"primary"`
}

// TTSModelInfo is one voice profile as listed by the models endpoint.
type TTSModelInfo struct {
	Model         string   `json:"id"`
	FullModelName string   `json:"full_model_name"`
	Language      string   `json:"language"`
	Speakers      []string `json:"speakers"`
	Default       bool     `json:"default"`
}

// ModelsInfo describes the available models and the resolved defaults.
type ModelsInfo struct {
	DefaultModel    string         `json:"default_model"`
	LLMModels       []LLMModelInfo `json:"llm_models"`
	TTSModels       []TTSModelInfo `json:"tts_models"`
	DefaultTTSModel string         `json:"default_tts_model"`
	Speakers        []string       `json:"speakers"`
	Tier            string         `json:"tier"`
	RAMGB           float64        `json:"ram_gb"`
}

// Models lists the catalogs together with the defaults chosen at startup.
func (s *Service) Models() (*ModelsInfo, error) {
	r := s.resolver
	info := &ModelsInfo{
		DefaultModel:    r.DefaultModel(),
		LLMModels:       []LLMModelInfo{},
		TTSModels:       []TTSModelInfo{},
		DefaultTTSModel: r.DefaultVoice().Model,
		Speakers:        append([]string{}, r.DefaultVoice().Speakers...),
		Tier:            r.Tier().TierID,
		RAMGB:           r.RAMGB(),
	}

	for _, tier := range r.LLMCatalog().HardwareTiers {
		var models []LLMModelInfo
		if err := copier.Copy(&models, &tier.Models); err != nil {
			return nil, err
		}
		for i := range models {
			models[i].Tier = tier.TierID
		}
		info.LLMModels = append(info.LLMModels, models...)
	}

	voices := []TTSModelInfo(nil)
	catalogVoices := r.Voices()
	if err := copier.Copy(&voices, &catalogVoices); err != nil {
		return nil, err
	}
	for i := range voices {
		if voices[i].Speakers == nil {
			voices[i].Speakers = []string{}
		}
	}
	info.TTSModels = append(info.TTSModels, voices...)
	return info, nil
}
