package stt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mgoltzsche/cleave-meeting/internal/model"
	"github.com/orcaman/writerseeker"
)

type Transcript = model.Transcript

type Service interface {
	Transcribe(ctx context.Context, wavData []byte) (string, error)
}

type Transcriber struct {
	Service Service
}

// Transcribe transcribes the provided speech to text.
// Utterances that fail to transcribe or contain no speech are skipped.
func (t *Transcriber) Transcribe(ctx context.Context, input <-chan audio.Buffer) <-chan Transcript {
	ch := make(chan Transcript, 10)

	go func() {
		defer close(ch)

		for audioBuffer := range input {
			wavData, err := EncodeWav(audioBuffer)
			if err != nil {
				slog.Error(err.Error())
				continue
			}

			transcript, ok, err := t.TranscribeWav(ctx, wavData)
			if err != nil {
				if ctx.Err() != nil {
					return
				}

				slog.Warn(err.Error())
				continue
			}

			if ok {
				ch <- transcript
			}
		}
	}()

	return ch
}

// TranscribeWav transcribes a single utterance.
// It returns false when the audio does not contain speech.
func (t *Transcriber) TranscribeWav(ctx context.Context, wavData []byte) (Transcript, bool, error) {
	text, err := t.Service.Transcribe(ctx, wavData)
	if err != nil {
		return Transcript{}, false, fmt.Errorf("failed to transcribe: %w", err)
	}

	text = strings.TrimSpace(strings.ReplaceAll(text, "[BLANK_AUDIO]", ""))
	if text == "" {
		return Transcript{}, false, nil
	}

	slog.Info(fmt.Sprintf("transcript: %s", text))

	return Transcript{Text: text}, true, nil
}

// EncodeWav encodes the audio buffer as 16 bit RIFF wave.
func EncodeWav(buffer audio.Buffer) ([]byte, error) {
	wavFile := &writerseeker.WriterSeeker{}
	f := buffer.PCMFormat()
	encoder := wav.NewEncoder(wavFile, f.SampleRate, 16, f.NumChannels, 1)

	if err := encoder.Write(buffer.AsIntBuffer()); err != nil {
		return nil, fmt.Errorf("encoder write buffer: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("encoder close: %w", err)
	}

	riffWav, err := io.ReadAll(wavFile.Reader())
	if err != nil {
		return nil, fmt.Errorf("reading wav into memory: %w", err)
	}

	return riffWav, nil
}
