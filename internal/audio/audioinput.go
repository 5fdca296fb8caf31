package audio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-audio/audio"
	"github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 512 * 9

// Input records utterances from a microphone.
// Samples are collected while the volume exceeds MinVolume and until it stayed below for MinDelay.
type Input struct {
	Device      string
	SampleRate  int
	Channels    int
	MinVolume   int
	MinDelay    time.Duration
	MaxDuration time.Duration
}

// RecordAudio opens an audio input device and emits one buffer per utterance into the returned channel.
func (o *Input) RecordAudio(ctx context.Context) (<-chan audio.Buffer, error) {
	device, err := inputDevice(o.Device)
	if err != nil {
		return nil, err
	}

	in := make([]int16, framesPerBuffer)
	audioStream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: o.Channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      device.DefaultSampleRate,
		FramesPerBuffer: len(in),
	}, &in)
	if err != nil {
		return nil, fmt.Errorf("opening audio input stream: %w", err)
	}

	err = audioStream.Start()
	if err != nil {
		audioStream.Close()
		return nil, fmt.Errorf("starting audio input stream: %w", err)
	}

	ch := make(chan audio.Buffer, 5)
	deviceSampleRate := int(device.DefaultSampleRate)
	maxSamples := int(o.MaxDuration.Seconds() * float64(deviceSampleRate*o.Channels))

	go func() {
		defer close(ch)
		defer func() {
			if err := audioStream.Stop(); err != nil {
				slog.Warn("failed to stop input audio stream", "err", err)
			}
			if err := audioStream.Close(); err != nil {
				slog.Warn("failed to close input audio stream", "err", err)
			}
		}()

		var lastHeard time.Time
		utterance := make([]int16, 0, framesPerBuffer*8)

		flush := func() {
			if len(utterance) == 0 {
				return
			}

			samples := resampleInt16(utterance, deviceSampleRate, o.SampleRate)
			utterance = utterance[:0]

			select {
			case ch <- &audio.IntBuffer{
				Format:         &audio.Format{SampleRate: o.SampleRate, NumChannels: o.Channels},
				Data:           int16ToInt(samples),
				SourceBitDepth: 16,
			}:
			case <-ctx.Done():
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if err := audioStream.Read(); err != nil {
				if err == portaudio.InputOverflowed {
					slog.Warn("audio input overflowed - dropped samples")
				} else {
					slog.Warn("failed to read audio stream", "err", err)
				}
				continue
			}

			if int(calculateRMS16(in)) > o.MinVolume {
				lastHeard = time.Now()
			}

			if time.Since(lastHeard) < o.MinDelay {
				utterance = append(utterance, in...)

				if maxSamples > 0 && len(utterance) >= maxSamples {
					slog.Debug("max utterance duration exceeded")
					flush()
				}
			} else {
				flush()
			}
		}
	}()

	return ch, nil
}
