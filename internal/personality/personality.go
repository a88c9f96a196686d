// Package personality provides the named trait presets that color the bot's
// play, analogous to the fixed strategy profiles (tight-aggressive, maniac,
// random) a poker bot ships with.
package personality

import (
	"fmt"
	rand "math/rand/v2"
)

// Preset names a personality
type Preset string

const (
	Aggressive    Preset = "aggressive"
	Conservative  Preset = "conservative"
	Balanced      Preset = "balanced"
	Unpredictable Preset = "unpredictable"
)

// ParsePreset validates a preset name
func ParsePreset(name string) (Preset, error) {
	switch Preset(name) {
	case Aggressive, Conservative, Balanced, Unpredictable:
		return Preset(name), nil
	default:
		return "", fmt.Errorf("unknown personality %q", name)
	}
}

// Traits is a trait vector. All values live in [0,1].
type Traits struct {
	BluffFrequency     float64
	ChallengeThreshold float64
	RiskTolerance      float64
	AdaptiveRate       float64
}

var presets = map[Preset]Traits{
	Aggressive: {
		BluffFrequency:     0.7,
		ChallengeThreshold: 0.4,
		RiskTolerance:      0.8,
		AdaptiveRate:       0.6,
	},
	Conservative: {
		BluffFrequency:     0.25,
		ChallengeThreshold: 0.7,
		RiskTolerance:      0.3,
		AdaptiveRate:       0.4,
	},
	Balanced: {
		BluffFrequency:     0.5,
		ChallengeThreshold: 0.55,
		RiskTolerance:      0.5,
		AdaptiveRate:       0.5,
	},
}

// BalancedTraits returns the balanced preset's vector, the neutral default
// when the personality subsystem is unavailable.
func BalancedTraits() Traits {
	return presets[Balanced]
}

// Personality exposes the trait vector for a preset. The unpredictable
// preset samples a fresh vector on every read, so callers must not assume
// two consecutive reads agree.
type Personality struct {
	preset Preset
	rng    *rand.Rand
}

// New creates a personality for the given preset
func New(preset Preset, rng *rand.Rand) *Personality {
	return &Personality{preset: preset, rng: rng}
}

// Preset returns the preset name
func (p *Personality) Preset() Preset {
	return p.preset
}

// Traits returns the current trait vector
func (p *Personality) Traits() Traits {
	if p.preset == Unpredictable {
		return Traits{
			BluffFrequency:     p.rng.Float64(),
			ChallengeThreshold: p.rng.Float64(),
			RiskTolerance:      p.rng.Float64(),
			AdaptiveRate:       p.rng.Float64(),
		}
	}
	return presets[p.preset]
}

// ShouldBluff samples the current bluff frequency
func (p *Personality) ShouldBluff() bool {
	return p.rng.Float64() < p.Traits().BluffFrequency
}

// ShouldChallenge samples against the current challenge threshold: the
// higher the threshold, the rarer the challenge.
func (p *Personality) ShouldChallenge() bool {
	return p.rng.Float64() > p.Traits().ChallengeThreshold
}
