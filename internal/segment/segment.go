package segment

import (
	"strings"
)

// DefaultTerminators are the sentence stops the on-device recognizer emits for Japanese speech.
const DefaultTerminators = "。？"

// Segmenter splits transcripts into sentence fragments.
type Segmenter struct {
	// Terminators holds the characters a transcript is split at.
	// Defaults to DefaultTerminators when empty.
	Terminators string `json:"terminators,omitempty"`
}

// Segment splits the transcript at every terminator character.
// Empty fragments are dropped, whitespace is preserved.
func (s Segmenter) Segment(transcript string) []string {
	terminators := s.Terminators
	if terminators == "" {
		terminators = DefaultTerminators
	}

	return strings.FieldsFunc(transcript, func(r rune) bool {
		return strings.ContainsRune(terminators, r)
	})
}

// Segment splits the transcript using the default terminators.
func Segment(transcript string) []string {
	return Segmenter{}.Segment(transcript)
}
