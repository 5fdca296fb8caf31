package presenter

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mgoltzsche/cleave-meeting/internal/model"
)

type SoundSource interface {
	Sound(tier model.Tier) ([]byte, error)
}

type Speaker interface {
	Speak(ctx context.Context, text string) ([]byte, error)
}

// Player plays RIFF wave audio.
type Player interface {
	Play(ctx context.Context, wav []byte) error
}

// Console renders reactions to a terminal and plays their sounds.
type Console struct {
	Renderer *Renderer
	Out      io.Writer
	Sounds   SoundSource
	// Speech is optional and speaks the caption of alerting reactions.
	Speech Speaker
	Player Player
}

// Present renders the reactions until the channel is closed.
// Reactions are rendered in order; audio playback blocks the rendering of the next reaction.
func (c *Console) Present(ctx context.Context, reactions <-chan model.Reaction) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		for r := range reactions {
			p := c.Renderer.Render(r)

			_, err := fmt.Fprintf(c.Out, "[%s] %s %s\n", r.Tier, p.Image, p.Caption)
			if err != nil {
				slog.Warn("failed to write reaction", "err", err)
			}

			if p.Sound == "" || c.Player == nil {
				continue
			}

			c.play(ctx, r.Tier, p)
		}
	}()

	return done
}

func (c *Console) play(ctx context.Context, tier model.Tier, p Presentation) {
	if c.Sounds != nil {
		sound, err := c.Sounds.Sound(tier)
		if err != nil {
			slog.Warn(fmt.Sprintf("failed to generate %s sound: %s", p.Sound, err))
		} else if err = c.Player.Play(ctx, sound); err != nil {
			slog.Warn(fmt.Sprintf("failed to play %s sound: %s", p.Sound, err))
		}
	}

	if c.Speech == nil || p.Caption == "" {
		return
	}

	speech, err := c.Speech.Speak(ctx, p.Caption)
	if err != nil {
		slog.Warn("failed to generate speech", "err", err)
		return
	}

	err = c.Player.Play(ctx, speech)
	if err != nil {
		slog.Warn("failed to play speech", "err", err)
	}
}
