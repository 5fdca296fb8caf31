package soundgen

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mgoltzsche/cleave-meeting/internal/model"
	"github.com/orcaman/writerseeker"
)

var ErrNoSound = errors.New("tier has no alert sound")

type tone struct {
	Frequency float64
	Duration  time.Duration
	Repeat    int
}

var alertTones = map[model.Tier]tone{
	model.TierMild:       {Frequency: 660, Duration: 200 * time.Millisecond, Repeat: 1},
	model.TierEscalating: {Frequency: 880, Duration: 200 * time.Millisecond, Repeat: 2},
	model.TierSevere:     {Frequency: 1320, Duration: 150 * time.Millisecond, Repeat: 4},
}

// Generator synthesizes the alert sounds played for alerting reaction tiers.
type Generator struct {
	SampleRate int

	mutex  sync.Mutex
	sounds map[model.Tier][]byte
}

// Sound returns the RIFF wave encoded alert sound of the given tier.
func (g *Generator) Sound(tier model.Tier) ([]byte, error) {
	t, ok := alertTones[tier]
	if !ok {
		return nil, ErrNoSound
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	if b, ok := g.sounds[tier]; ok {
		return b, nil
	}

	b, err := g.generateSound(t)
	if err != nil {
		return nil, fmt.Errorf("generate %s sound: %w", tier, err)
	}

	if g.sounds == nil {
		g.sounds = map[model.Tier][]byte{}
	}

	g.sounds[tier] = b

	return b, nil
}

func (g *Generator) sampleRate() int {
	if g.SampleRate <= 0 {
		return 16000
	}

	return g.SampleRate
}

// generateSound renders the tone as beeps separated by pauses of the same length.
func (g *Generator) generateSound(t tone) ([]byte, error) {
	sampleRate := g.sampleRate()
	beepLen := int(math.Ceil(float64(t.Duration) * float64(sampleRate) / float64(time.Second)))
	data := make([]int, 0, 2*beepLen*t.Repeat)

	for r := 0; r < t.Repeat; r++ {
		for i := 0; i < beepLen; i++ {
			phase := t.Frequency * float64(i) / float64(sampleRate)
			// fade in and out to avoid clicks
			envelope := math.Min(1, math.Min(float64(i), float64(beepLen-i))/float64(sampleRate/100))

			data = append(data, int(math.Sin(2*math.Pi*phase)*envelope*0.8*32767))
		}

		if r < t.Repeat-1 {
			data = append(data, make([]int, beepLen)...)
		}
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
		Data:           data,
		SourceBitDepth: 16,
	}

	wavFile := &writerseeker.WriterSeeker{}
	encoder := wav.NewEncoder(wavFile, sampleRate, 16, 1, 1)

	err := encoder.Write(buf)
	if err != nil {
		return nil, fmt.Errorf("write wav: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("close wav encoder: %w", err)
	}

	b, err := io.ReadAll(wavFile.Reader())
	if err != nil {
		return nil, fmt.Errorf("read generated wav: %w", err)
	}

	return b, nil
}
