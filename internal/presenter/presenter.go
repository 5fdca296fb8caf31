package presenter

import (
	"math/rand/v2"

	"github.com/mgoltzsche/cleave-meeting/internal/model"
	"github.com/mgoltzsche/cleave-meeting/pkg/config"
)

const (
	ImageStareOpenEyes  = "stare_openeyes"
	ImageStareCloseEyes = "stare_closeeyes"
	ImageAngry          = "angry"
	ImageFurious        = "furious"

	SoundCleave = "cleave_effect_sound"
	SoundSevere = "cleave_severe_sound"
)

// Presentation describes how a reaction is rendered.
type Presentation struct {
	Image   string `json:"image"`
	Caption string `json:"caption"`
	Sound   string `json:"sound,omitempty"`
}

type Renderer struct {
	Captions config.PresenterDefinition
	// Blink chooses between the open and closed eyes image, randomly if nil.
	Blink func() bool
}

func (r *Renderer) Render(reaction model.Reaction) Presentation {
	switch reaction.Tier {
	case model.TierSevere:
		return Presentation{
			Image:   ImageFurious,
			Caption: r.Captions.SevereCaption,
			Sound:   SoundSevere,
		}
	case model.TierMild, model.TierEscalating:
		caption := reaction.Reason
		if caption == "" {
			caption = reaction.Sentence
		}

		return Presentation{
			Image:   ImageAngry,
			Caption: caption,
			Sound:   SoundCleave,
		}
	case model.TierCalm:
		return Presentation{
			Image:   r.stareImage(),
			Caption: r.Captions.CalmCaption,
		}
	default:
		return Presentation{
			Image:   r.stareImage(),
			Caption: r.Captions.DormantCaption,
		}
	}
}

func (r *Renderer) stareImage() string {
	blink := r.Blink
	if blink == nil {
		blink = randomBool
	}

	if blink() {
		return ImageStareCloseEyes
	}

	return ImageStareOpenEyes
}

func randomBool() bool {
	return rand.IntN(2) == 0
}
