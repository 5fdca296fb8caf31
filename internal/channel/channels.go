package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mgoltzsche/cleave-meeting/internal/classifier"
	"github.com/mgoltzsche/cleave-meeting/pkg/config"
)

// Channels holds the meeting channels by ID.
// Channels are independent of each other: each one has its own recording session and reaction history.
type Channels struct {
	ctx        context.Context
	channels   map[string]*Channel
	cfg        config.Configuration
	classifier classifier.Classifier
	mutex      sync.Mutex
}

func NewChannels(ctx context.Context, cfg config.Configuration, c classifier.Classifier) *Channels {
	return &Channels{
		ctx:        ctx,
		channels:   map[string]*Channel{},
		cfg:        cfg,
		classifier: c,
	}
}

func (r *Channels) GetOrCreate(id string) (*Channel, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if c, ok := r.channels[id]; ok {
		return c, nil
	}

	c, err := newChannel(r.ctx, id, r.cfg, r.classifier)
	if err != nil {
		return nil, err
	}

	slog.Debug(fmt.Sprintf("created channel %q", id))

	r.channels[id] = c

	return c, nil
}

// Close closes all channels.
func (r *Channels) Close() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for id, c := range r.channels {
		c.Close()
		delete(r.channels, id)
	}
}

// NewClassifier creates the classifier backend selected by the configuration.
func NewClassifier(cfg config.Configuration, client *http.Client) (classifier.Classifier, error) {
	if client == nil {
		client = &http.Client{Timeout: time.Duration(cfg.HTTPTimeout)}
	}

	switch cfg.Classifier.Backend {
	case config.ClassifierBackendRemote:
		return &classifier.Client{
			URL:    cfg.Classifier.URL,
			Client: client,
		}, nil
	case config.ClassifierBackendLLM:
		return &classifier.LLM{
			ServerURL:    cfg.ServerURL,
			APIKey:       cfg.APIKey,
			Model:        cfg.Classifier.ChatModel,
			Temperature:  cfg.Classifier.Temperature,
			SystemPrompt: cfg.Classifier.SystemPrompt,
			HTTPClient:   client,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported classifier backend %q", cfg.Classifier.Backend)
	}
}
