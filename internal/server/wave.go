package server

import (
	"bytes"
	"fmt"

	"github.com/go-audio/wav"
)

func validateWaveAudio(b []byte) error {
	decoder := wav.NewDecoder(bytes.NewReader(b))

	decoder.ReadInfo()
	if err := decoder.Err(); err != nil {
		return fmt.Errorf("read wave file headers: %w", err)
	}

	if !decoder.IsValidFile() {
		return fmt.Errorf("invalid wave file")
	}

	if decoder.SampleBitDepth() != 16 {
		return fmt.Errorf("wave data with unsupported bit depth of %d provided, expected 16", decoder.SampleBitDepth())
	}

	return nil
}
