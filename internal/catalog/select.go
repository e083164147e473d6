package catalog

import "fmt"

// SelectTier picks the tier for ramGB. Among tiers whose range contains it
// the one with the highest lower bound wins; failing that, the highest tier
// whose lower bound is satisfied; failing that, the first tier.
func SelectTier(tiers []HardwareTier, ramGB float64) (HardwareTier, error) {
	if len(tiers) == 0 {
		return HardwareTier{}, fmt.Errorf("%w: no hardware tiers", ErrEmptyCatalog)
	}

	best := -1
	for i, t := range tiers {
		if t.Contains(ramGB) && (best < 0 || t.MinRAMGB > tiers[best].MinRAMGB) {
			best = i
		}
	}
	if best >= 0 {
		return tiers[best], nil
	}

	for i, t := range tiers {
		if ramGB >= t.MinRAMGB && (best < 0 || t.MinRAMGB > tiers[best].MinRAMGB) {
			best = i
		}
	}
	if best >= 0 {
		return tiers[best], nil
	}
	return tiers[0], nil
}

// SelectModel returns the primary model of the tier, else its first model.
func SelectModel(tier HardwareTier) (LLMModel, error) {
	if len(tier.Models) == 0 {
		return LLMModel{}, fmt.Errorf("%w: tier %s has no models", ErrEmptyCatalog, tier.TierID)
	}
	for _, m := range tier.Models {
		if m.IsPrimary {
			return m, nil
		}
	}
	return tier.Models[0], nil
}

// SelectVoice returns the profile flagged default, else the one with id
// "vits", else the first.
func SelectVoice(voices VoiceCatalog) (VoiceProfile, error) {
	if len(voices) == 0 {
		return VoiceProfile{}, fmt.Errorf("%w: no voice profiles", ErrEmptyCatalog)
	}
	for _, v := range voices {
		if v.Default {
			return v, nil
		}
	}
	if v, ok := voices.Find("vits"); ok {
		return v, nil
	}
	return voices[0], nil
}

// DefaultSpeaker returns the first declared speaker of the profile, or "".
func DefaultSpeaker(v VoiceProfile) string {
	if len(v.Speakers) == 0 {
		return ""
	}
	return v.Speakers[0]
}
