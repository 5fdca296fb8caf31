package vad

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-audio/audio"
	"github.com/streamer45/silero-vad-go/speech"
)

// Detector filters out utterances that don't contain speech.
type Detector struct {
	ModelPath  string
	SampleRate int
	Threshold  float32
}

// DetectVoiceActivity forwards only those buffers of the input channel that contain speech.
func (d *Detector) DetectVoiceActivity(input <-chan audio.Buffer) (<-chan audio.Buffer, error) {
	sampleRate := d.SampleRate
	if sampleRate == 0 {
		sampleRate = 16000
	}

	threshold := d.Threshold
	if threshold == 0 {
		threshold = 0.5
	}

	sileroVAD, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:  d.ModelPath,
		SampleRate: sampleRate,
		Threshold:  threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("create silero vad: %w", err)
	}

	ch := make(chan audio.Buffer, 10)

	go func() {
		defer close(ch)
		defer func() {
			if err := sileroVAD.Destroy(); err != nil {
				slog.Warn("destroy silero vad", "err", err)
			}
		}()

		for audioBuffer := range input {
			start := time.Now()

			segments, err := sileroVAD.Detect(audioBuffer.AsFloat32Buffer().Data)
			if err != nil {
				slog.Warn("detect voice", "err", err)
				continue
			}

			detected := len(segments) > 0
			slog.Debug(fmt.Sprintf("voice activity detected: %v (took %s)", detected, time.Since(start)))

			if detected {
				ch <- audioBuffer
			}

			if err := sileroVAD.Reset(); err != nil {
				slog.Warn("reset silero vad", "err", err)
			}
		}
	}()

	return ch, nil
}
