package model

import "fmt"

// Tier is the discrete UI reaction level derived from recent classification outcomes.
type Tier int

const (
	TierDormant Tier = iota
	TierCalm
	TierMild
	TierEscalating
	TierSevere
)

var tierNames = [...]string{"dormant", "calm", "mild", "escalating", "severe"}

func (t Tier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return fmt.Sprintf("tier(%d)", int(t))
	}

	return tierNames[t]
}

// Alert reports whether the tier should trigger alert imagery and sound.
func (t Tier) Alert() bool {
	return t >= TierMild
}

func ParseTier(s string) (Tier, error) {
	for i, name := range tierNames {
		if name == s {
			return Tier(i), nil
		}
	}

	return TierDormant, fmt.Errorf("unsupported tier %q", s)
}

func (t Tier) MarshalText() ([]byte, error) {
	if t < 0 || int(t) >= len(tierNames) {
		return nil, fmt.Errorf("marshal tier: unsupported value %d", int(t))
	}

	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	tier, err := ParseTier(string(b))
	if err != nil {
		return err
	}

	*t = tier

	return nil
}
