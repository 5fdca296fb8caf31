package classifier

import (
	"context"

	"github.com/mgoltzsche/cleave-meeting/internal/model"
)

type Result = model.ClassificationResult

// Classifier judges whether a sentence derails the meeting.
// Implementations fail with a NetworkError, DecodeError or ServerError.
type Classifier interface {
	Classify(ctx context.Context, sentence string) (Result, error)
}
