package tts

import (
	"context"
	"fmt"
	"sync"
)

type Service interface {
	GenerateAudio(ctx context.Context, msg string) ([]byte, error)
}

// SpeechGenerator speaks captions, remembering the audio of fixed captions
// since those are repeated on every severe reaction.
type SpeechGenerator struct {
	Service Service
	// Cached lists the captions whose audio is kept in memory.
	Cached []string

	mutex sync.Mutex
	cache map[string][]byte
}

func (g *SpeechGenerator) Speak(ctx context.Context, text string) ([]byte, error) {
	cacheable := g.isCacheable(text)

	if cacheable {
		g.mutex.Lock()
		b, ok := g.cache[text]
		g.mutex.Unlock()

		if ok {
			return b, nil
		}
	}

	b, err := g.Service.GenerateAudio(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("speak %q: %w", text, err)
	}

	if cacheable {
		g.mutex.Lock()
		if g.cache == nil {
			g.cache = map[string][]byte{}
		}
		g.cache[text] = b
		g.mutex.Unlock()
	}

	return b, nil
}

func (g *SpeechGenerator) isCacheable(text string) bool {
	for _, c := range g.Cached {
		if c == text {
			return true
		}
	}

	return false
}
