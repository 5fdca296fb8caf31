package reaction

import (
	"fmt"

	"github.com/mgoltzsche/cleave-meeting/internal/model"
)

const DefaultWindowSize = 3

type Tier = model.Tier

// Tracker keeps the cleave outcomes of a recording session
// and derives the reaction tier from the most recent ones.
// It is not safe for concurrent use; the session driver serializes access.
type Tracker struct {
	severity   Severity
	windowSize int
	history    []bool
	totalBad   int
}

func NewTracker(severity Severity) (*Tracker, error) {
	if err := severity.Validate(); err != nil {
		return nil, fmt.Errorf("new reaction tracker: %w", err)
	}

	return &Tracker{
		severity:   severity,
		windowSize: DefaultWindowSize,
	}, nil
}

// Record appends the outcome to the history and returns the tier for the updated window.
func (t *Tracker) Record(cleave bool) Tier {
	t.history = append(t.history, cleave)

	if cleave {
		t.totalBad++
	}

	return t.Tier()
}

// Tier returns the tier of the current window.
func (t *Tracker) Tier() Tier {
	badCount := t.BadCount()

	if badCount >= 2 && t.severity.Mode == SeverityLifetime && t.totalBad >= t.severity.threshold() {
		return model.TierSevere
	}

	switch badCount {
	case 0:
		return model.TierDormant
	case 1:
		return model.TierCalm
	case 2:
		return model.TierMild
	default:
		return model.TierEscalating
	}
}

// Window returns a copy of the most recent outcomes, oldest first.
func (t *Tracker) Window() []bool {
	start := len(t.history) - t.windowSize
	if start < 0 {
		start = 0
	}

	window := make([]bool, len(t.history)-start)
	copy(window, t.history[start:])

	return window
}

// BadCount returns the number of cleave outcomes within the window.
func (t *Tracker) BadCount() int {
	count := 0

	for _, cleave := range t.Window() {
		if cleave {
			count++
		}
	}

	return count
}

// TotalBad returns the number of cleave outcomes since the session started.
func (t *Tracker) TotalBad() int {
	return t.totalBad
}

func (t *Tracker) Len() int {
	return len(t.history)
}

// Reset clears the history when a new recording session starts.
func (t *Tracker) Reset() {
	t.history = nil
	t.totalBad = 0
}
