package domain

import (
	"time"

	"github.com/samber/lo"
)

const (
	DefaultDuration  = 20 * time.Second
	MinDuration      = 5 * time.Second
	MaxDuration      = 120 * time.Second
	MinQuestions     = 1
	MaxQuestionLimit = 100

	RevealDuration = 15 * time.Second
	ResultDuration = 8 * time.Second
	TickInterval   = time.Second
)

type GameConfig struct {
	MaxQuestions     int
	DefaultDuration  time.Duration
	RandomizeOnStart bool
	SelectedSources  []string
}

// DefaultConfig sizes the game to the fallback catalog.
func DefaultConfig(catalogSize int) GameConfig {
	return GameConfig{
		MaxQuestions:     catalogSize,
		DefaultDuration:  DefaultDuration,
		RandomizeOnStart: true,
	}
}

// ConfigPatch carries a partial update: nil fields are left untouched.
type ConfigPatch struct {
	MaxQuestions     *int
	DefaultDuration  *time.Duration
	RandomizeOnStart *bool
	SelectedSources  []string
}

// Apply returns a copy of c with the patch applied and every field clamped.
func (c GameConfig) Apply(p ConfigPatch) GameConfig {
	next := c
	if p.MaxQuestions != nil {
		next.MaxQuestions = clamp(*p.MaxQuestions, MinQuestions, MaxQuestionLimit)
	}
	if p.DefaultDuration != nil {
		next.DefaultDuration = clamp(*p.DefaultDuration, MinDuration, MaxDuration)
	}
	if p.RandomizeOnStart != nil {
		next.RandomizeOnStart = *p.RandomizeOnStart
	}
	if p.SelectedSources != nil {
		next.SelectedSources = lo.Uniq(lo.Compact(p.SelectedSources))
	}
	return next
}

func clamp[T int | time.Duration](v, low, high T) T {
	return min(max(v, low), high)
}
