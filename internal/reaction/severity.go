package reaction

import (
	"errors"
	"fmt"
)

// SeverityMode selects how the Severe tier is derived.
// A window of three outcomes can never hold five bad ones,
// so the severe threshold needs to be evaluated against a separate count or not at all.
type SeverityMode string

const (
	// SeverityLifetime escalates to Severe once the number of bad outcomes
	// since the session started reaches the threshold while the window is alerting.
	SeverityLifetime SeverityMode = "lifetime"
	// SeverityDisabled never produces the Severe tier.
	SeverityDisabled SeverityMode = "disabled"
)

const DefaultSevereThreshold = 5

var ErrSeverityModeUnset = errors.New("severity mode must be set explicitly to lifetime or disabled")

type Severity struct {
	Mode      SeverityMode `json:"mode"`
	Threshold int          `json:"threshold,omitempty"`
}

func (s Severity) Validate() error {
	switch s.Mode {
	case SeverityLifetime:
		if s.Threshold < 0 {
			return fmt.Errorf("negative severe threshold %d", s.Threshold)
		}
	case SeverityDisabled:
	case "":
		return ErrSeverityModeUnset
	default:
		return fmt.Errorf("unsupported severity mode %q, supported modes are %s and %s", s.Mode, SeverityLifetime, SeverityDisabled)
	}

	return nil
}

func (s Severity) threshold() int {
	if s.Threshold == 0 {
		return DefaultSevereThreshold
	}

	return s.Threshold
}
