package channel

import (
	"context"
	"fmt"

	"github.com/mgoltzsche/cleave-meeting/internal/classifier"
	"github.com/mgoltzsche/cleave-meeting/internal/model"
	"github.com/mgoltzsche/cleave-meeting/internal/pubsub"
	"github.com/mgoltzsche/cleave-meeting/internal/reaction"
	"github.com/mgoltzsche/cleave-meeting/internal/session"
	"github.com/mgoltzsche/cleave-meeting/pkg/config"
)

type Reaction = model.Reaction

// Channel is a meeting room: transcripts published into it are classified
// within its recording session and the resulting reactions are fanned out to its subscribers.
type Channel struct {
	ID      string
	session *session.Session
	input   chan model.Transcript
	output  *pubsub.PubSub[Reaction]
	ctx     context.Context
	cancel  context.CancelFunc
	done    <-chan struct{}
}

func newChannel(ctx context.Context, id string, cfg config.Configuration, c classifier.Classifier) (*Channel, error) {
	tracker, err := reaction.NewTracker(cfg.Reaction.Severity)
	if err != nil {
		return nil, fmt.Errorf("new channel %q: %w", id, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	input := make(chan model.Transcript, 5)
	output := pubsub.New[Reaction]()
	s := session.New(ctx, c, cfg.Segmenter, tracker, output)

	return &Channel{
		ID:      id,
		session: s,
		input:   input,
		output:  output,
		ctx:     ctx,
		cancel:  cancel,
		done:    s.Run(ctx, input),
	}, nil
}

// Start begins a new recording session and returns its ID.
func (c *Channel) Start() string {
	return c.session.Start()
}

// Stop ends the current recording session.
func (c *Channel) Stop() {
	c.session.Stop()
}

// SessionID returns the ID of the current recording session.
func (c *Channel) SessionID() string {
	return c.session.ID()
}

// Publish enqueues a transcript for classification.
// It blocks while the queue is full, until ctx is cancelled.
func (c *Channel) Publish(ctx context.Context, t model.Transcript) error {
	select {
	case c.input <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return fmt.Errorf("channel %q is closed", c.ID)
	}
}

func (c *Channel) Subscribe(ctx context.Context) pubsub.Subscription[Reaction] {
	return c.output.Subscribe(ctx)
}

// Close stops the channel's session and terminates all subscriptions.
func (c *Channel) Close() {
	c.cancel()
	c.session.Stop()
	<-c.done
	c.output.Stop()
}
