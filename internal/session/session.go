package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/mgoltzsche/cleave-meeting/internal/classifier"
	"github.com/mgoltzsche/cleave-meeting/internal/model"
	"github.com/mgoltzsche/cleave-meeting/internal/pubsub"
	"github.com/mgoltzsche/cleave-meeting/internal/reaction"
	"github.com/mgoltzsche/cleave-meeting/internal/segment"
)

type Reaction = model.Reaction

type Segmenter interface {
	Segment(transcript string) []string
}

var _ Segmenter = segment.Segmenter{}

// Session drives the classification of the transcripts of a recording session.
// Transcripts are segmented and their fragments classified one after another,
// feeding each outcome into the reaction tracker and publishing the resulting reaction.
type Session struct {
	classifier classifier.Classifier
	segmenter  Segmenter
	tracker    *reaction.Tracker
	publisher  pubsub.Publisher[Reaction]
	parentCtx  context.Context

	// dispatchMutex serializes dispatch loops since the tracker's window is order-sensitive.
	dispatchMutex sync.Mutex
	mutex         sync.Mutex
	id            string
	generation    int64
	seq           int64
	ctx           context.Context
	cancel        context.CancelFunc
}

// New creates a session driver.
// Transcripts are dropped until Start is called.
func New(ctx context.Context, c classifier.Classifier, s Segmenter, t *reaction.Tracker, p pubsub.Publisher[Reaction]) *Session {
	sessionCtx, cancel := context.WithCancel(ctx)
	cancel()

	return &Session{
		classifier: c,
		segmenter:  s,
		tracker:    t,
		publisher:  p,
		parentCtx:  ctx,
		ctx:        sessionCtx,
		cancel:     cancel,
	}
}

// ID returns the ID of the current recording session.
func (s *Session) ID() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.id
}

// Start begins a new recording session.
// The transcript that is currently being dispatched is abandoned and the reaction history is cleared.
func (s *Session) Start() string {
	s.mutex.Lock()
	s.cancel()
	s.generation++
	s.mutex.Unlock()

	s.dispatchMutex.Lock()
	defer s.dispatchMutex.Unlock()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.tracker.Reset()
	s.id = uuid.NewString()
	s.seq = 0
	s.ctx, s.cancel = context.WithCancel(s.parentCtx)

	slog.Info(fmt.Sprintf("started recording session %s", s.id))

	return s.id
}

// Stop ends the current recording session without blocking.
// Fragments that have not been classified yet are abandoned.
func (s *Session) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.cancel()
	s.generation++

	if s.id != "" {
		slog.Info(fmt.Sprintf("stopped recording session %s", s.id))
	}
}

// Run dispatches the transcripts received from the speech engine
// until the channel is closed or ctx is cancelled.
func (s *Session) Run(ctx context.Context, transcripts <-chan model.Transcript) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		for {
			select {
			case t, ok := <-transcripts:
				if !ok {
					return
				}

				s.Dispatch(t.Text)
			case <-ctx.Done():
				return
			}
		}
	}()

	return done
}

// Dispatch classifies the fragments of the given transcript sequentially
// and returns the number of published reactions.
// Fragments the classifier fails for are dropped.
func (s *Session) Dispatch(transcript string) int {
	s.mutex.Lock()
	generation := s.generation
	s.mutex.Unlock()

	s.dispatchMutex.Lock()
	defer s.dispatchMutex.Unlock()

	s.mutex.Lock()
	ctx := s.ctx
	sessionID := s.id
	outdated := s.generation > generation
	s.mutex.Unlock()

	if outdated || ctx.Err() != nil {
		slog.Debug("skipping transcript of an outdated or stopped recording session", "transcript", transcript)
		return 0
	}

	published := 0

	for _, fragment := range s.segmenter.Segment(transcript) {
		if ctx.Err() != nil {
			slog.Debug("abandoning remaining fragments since the recording session was stopped")
			break
		}

		result, err := s.classifier.Classify(ctx, fragment)
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn(fmt.Sprintf("dropping fragment %q: %s", fragment, err))
			}

			continue
		}

		s.publisher.Publish(s.record(sessionID, result))

		published++
	}

	return published
}

func (s *Session) record(sessionID string, result model.ClassificationResult) Reaction {
	tier := s.tracker.Record(result.Cleave)

	s.mutex.Lock()
	s.seq++
	seq := s.seq
	s.mutex.Unlock()

	r := Reaction{
		SessionID: sessionID,
		Seq:       seq,
		Tier:      tier,
		BadCount:  s.tracker.BadCount(),
		TotalBad:  s.tracker.TotalBad(),
		Window:    s.tracker.Window(),
		ResultID:  result.ID,
		Sentence:  result.Sentence,
		Reason:    result.Reason,
	}

	slog.Info(fmt.Sprintf("%s: %s (cleave: %v, window: %v)", tier, result.Sentence, result.Cleave, r.Window))

	return r
}
