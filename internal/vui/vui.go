package vui

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-audio/audio"
	"github.com/mgoltzsche/cleave-meeting/internal/channel"
	"github.com/mgoltzsche/cleave-meeting/internal/model"
	"github.com/mgoltzsche/cleave-meeting/internal/stt"
	"github.com/mgoltzsche/cleave-meeting/pkg/config"
)

// LocalChannelID names the channel the microphone of the local machine feeds.
const LocalChannelID = "local"

// MeetingPipeline transcribes the recorded utterances and classifies them within a new recording session.
// It returns the channel to control the session with and the resulting reactions.
func MeetingPipeline(ctx context.Context, cfg config.Configuration, input <-chan audio.Buffer) (*channel.Channel, <-chan model.Reaction, error) {
	httpClient := &http.Client{Timeout: time.Duration(cfg.HTTPTimeout)}

	c, err := channel.NewClassifier(cfg, httpClient)
	if err != nil {
		return nil, nil, err
	}

	channels := channel.NewChannels(ctx, cfg, c)

	meeting, err := channels.GetOrCreate(LocalChannelID)
	if err != nil {
		channels.Close()
		return nil, nil, err
	}

	transcriber := &stt.Transcriber{
		Service: &stt.Client{
			URL:      cfg.ServerURL,
			Model:    cfg.STTModel,
			Language: cfg.STTLanguage,
			APIKey:   cfg.APIKey,
			Client:   httpClient,
		},
	}

	sub := meeting.Subscribe(ctx)
	meeting.Start()

	transcripts := transcriber.Transcribe(ctx, input)

	go func() {
		defer channels.Close()

		for t := range transcripts {
			err := meeting.Publish(ctx, t)
			if err != nil {
				slog.Debug("dropping transcript", "transcript", t.Text, "err", err)
			}
		}

		<-ctx.Done()
	}()

	return meeting, sub.ResultChan(), nil
}
