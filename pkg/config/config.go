package config

import (
	"fmt"
	"time"

	"github.com/mgoltzsche/cleave-meeting/internal/reaction"
	"github.com/mgoltzsche/cleave-meeting/internal/segment"
)

type ClassifierBackend string

const (
	ClassifierBackendRemote ClassifierBackend = "remote"
	ClassifierBackendLLM    ClassifierBackend = "llm"
)

type Configuration struct {
	// ServerURL points to the OpenAI-compatible API server used for STT, TTS and the LLM classifier.
	ServerURL    string              `json:"serverURL"`
	APIKey       string              `json:"apiKey,omitempty"`
	InputDevice  string              `json:"inputDevice,omitempty"`
	OutputDevice string              `json:"outputDevice,omitempty"`
	MinVolume    int                 `json:"minVolume,omitempty"`
	VADEnabled   bool                `json:"vadEnabled,omitempty"`
	VADModelPath string              `json:"vadModelPath,omitempty"`
	STTModel     string              `json:"sttModel,omitempty"`
	STTLanguage  string              `json:"sttLanguage,omitempty"`
	TTSModel     string              `json:"ttsModel,omitempty"`
	HTTPTimeout  Duration            `json:"httpTimeout,omitempty"`
	Classifier   ClassifierConfig    `json:"classifier"`
	Segmenter    segment.Segmenter   `json:"segmenter"`
	Reaction     ReactionConfig      `json:"reaction"`
	Presenter    PresenterDefinition `json:"presenter"`
}

type ClassifierConfig struct {
	Backend ClassifierBackend `json:"backend"`
	// URL is the endpoint of the remote classifier.
	URL          string  `json:"url,omitempty"`
	ChatModel    string  `json:"chatModel,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	SystemPrompt string  `json:"systemPrompt,omitempty"`
}

type ReactionConfig struct {
	Severity reaction.Severity `json:"severity"`
}

type PresenterDefinition struct {
	DormantCaption string `json:"dormantCaption,omitempty"`
	CalmCaption    string `json:"calmCaption,omitempty"`
	SevereCaption  string `json:"severeCaption,omitempty"`
}

func Default() Configuration {
	return Configuration{
		ServerURL:   "http://localhost:8080",
		MinVolume:   450,
		STTModel:    "whisper-1",
		STTLanguage: "ja",
		HTTPTimeout: Duration(90 * time.Second),
		Classifier: ClassifierConfig{
			Backend: ClassifierBackendRemote,
			URL:     "https://vocal-circle-387923.an.r.appspot.com/cleave_meeting",
		},
		Segmenter: segment.Segmenter{
			Terminators: segment.DefaultTerminators,
		},
		Reaction: ReactionConfig{
			Severity: reaction.Severity{
				Mode:      reaction.SeverityLifetime,
				Threshold: reaction.DefaultSevereThreshold,
			},
		},
		Presenter: PresenterDefinition{
			DormantCaption: "会議は始まった御座いる。",
			CalmCaption:    "いいね。ひきつづける",
			SevereCaption:  "いい加減にせい！会議の本題に戻るでござる！",
		},
	}
}

func (c *Configuration) Validate() error {
	switch c.Classifier.Backend {
	case ClassifierBackendRemote:
		if c.Classifier.URL == "" {
			return fmt.Errorf("no classifier url configured")
		}
	case ClassifierBackendLLM:
		if c.ServerURL == "" {
			return fmt.Errorf("no server url configured for the llm classifier")
		}
		if c.Classifier.ChatModel == "" {
			return fmt.Errorf("no chat model configured for the llm classifier")
		}
	default:
		return fmt.Errorf("unsupported classifier backend %q, supported backends are %s and %s", c.Classifier.Backend, ClassifierBackendRemote, ClassifierBackendLLM)
	}

	err := c.Reaction.Severity.Validate()
	if err != nil {
		return fmt.Errorf("invalid reaction.severity: %w", err)
	}

	return nil
}
