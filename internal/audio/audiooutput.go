package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
)

// Output plays wave audio on a speaker.
// Concurrent Play calls are played one after the other.
type Output struct {
	Device string
	mutex  sync.Mutex
	device *portaudio.DeviceInfo
}

// Play plays the given 16 bit RIFF wave data and blocks until playback completed or ctx is cancelled.
func (o *Output) Play(ctx context.Context, wavData []byte) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.device == nil {
		device, err := outputDevice(o.Device)
		if err != nil {
			return err
		}

		o.device = device
	}

	return playAudio(ctx, bytes.NewReader(wavData), o.device)
}

// playAudio opens an audio output device and plays the given audio data.
func playAudio(ctx context.Context, wavFile io.ReadSeeker, device *portaudio.DeviceInfo) error {
	decoder := wav.NewDecoder(wavFile)
	decoder.ReadInfo()
	if err := decoder.Err(); err != nil {
		return fmt.Errorf("read wave file headers: %w", err)
	}

	if decoder.SampleBitDepth() != 16 {
		return fmt.Errorf("wave data with unsupported bit depth of %d provided, expected 16", decoder.SampleBitDepth())
	}

	audioDuration, err := decoder.Duration()
	if err != nil {
		return fmt.Errorf("get audio duration: %w", err)
	}

	sampleRate := int(decoder.SampleRate)
	deviceSampleRate := int(device.DefaultSampleRate)
	buffer := audio.IntBuffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: int(decoder.NumChans),
		},
		SourceBitDepth: int(decoder.SampleBitDepth()),
		Data:           make([]int, framesPerBuffer),
	}
	chunk := make([]int16, framesPerBuffer)
	out := make([]int16, len(resampleInt16(chunk, sampleRate, deviceSampleRate)))

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: int(decoder.NumChans),
			Latency:  device.DefaultLowOutputLatency,
		},
		SampleRate:      device.DefaultSampleRate,
		FramesPerBuffer: len(out) / int(decoder.NumChans),
	}, &out)
	if err != nil {
		return fmt.Errorf("open audio output stream: %w", err)
	}
	defer stream.Close()

	err = stream.Start()
	if err != nil {
		return fmt.Errorf("start audio output stream: %w", err)
	}
	defer stream.Stop()

	startTime := time.Now()

	for {
		n, err := decoder.PCMBuffer(&buffer)
		if n == 0 {
			break
		}
		if err != nil {
			return fmt.Errorf("read chunk from wave data: %w", err)
		}

		for i := range chunk {
			if i < n {
				chunk[i] = int16(buffer.Data[i])
			} else {
				chunk[i] = 0
			}
		}

		copy(out, resampleInt16(chunk, sampleRate, deviceSampleRate))

		err = stream.Write()
		if err != nil {
			slog.Warn("play audio: write chunk", "err", err)
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}

	select {
	case <-time.After(audioDuration - time.Since(startTime)):
	case <-ctx.Done():
	}

	return nil
}
