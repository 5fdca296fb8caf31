package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mgoltzsche/cleave-meeting/internal/reaction"
	"github.com/stretchr/testify/require"
)

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(file, []byte(`
serverURL: http://localai:8080
httpTimeout: 30s
classifier:
  backend: llm
  chatModel: qwen2.5-7b-instruct
segmenter:
  terminators: "。？！"
reaction:
  severity:
    mode: disabled
presenter:
  calmCaption: keep going
`), 0o644)
	require.NoError(t, err)

	cfg, err := FromFile(file)
	require.NoError(t, err)

	require.Equal(t, "http://localai:8080", cfg.ServerURL)
	require.Equal(t, Duration(30*time.Second), cfg.HTTPTimeout)
	require.Equal(t, ClassifierBackendLLM, cfg.Classifier.Backend)
	require.Equal(t, "qwen2.5-7b-instruct", cfg.Classifier.ChatModel)
	require.Equal(t, "。？！", cfg.Segmenter.Terminators)
	require.Equal(t, reaction.SeverityDisabled, cfg.Reaction.Severity.Mode)
	require.Equal(t, "keep going", cfg.Presenter.CalmCaption)
	require.Equal(t, Default().Presenter.SevereCaption, cfg.Presenter.SevereCaption, "default should be retained")
	require.Equal(t, Default().STTModel, cfg.STTModel, "default should be retained")
	require.NoError(t, cfg.Validate())
}

func TestFromFileRejectsUnknownFields(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(file, []byte("wakeWord: computer\n"), 0o644)
	require.NoError(t, err)

	_, err = FromFile(file)
	require.Error(t, err)
}

func TestFromFileMissing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		modify func(*Configuration)
		valid  bool
	}{
		{
			name:   "defaults",
			modify: func(*Configuration) {},
			valid:  true,
		},
		{
			name:   "unset severity mode",
			modify: func(c *Configuration) { c.Reaction.Severity.Mode = "" },
		},
		{
			name:   "unsupported severity mode",
			modify: func(c *Configuration) { c.Reaction.Severity.Mode = "cumulative" },
		},
		{
			name:   "unsupported backend",
			modify: func(c *Configuration) { c.Classifier.Backend = "grpc" },
		},
		{
			name:   "remote backend without url",
			modify: func(c *Configuration) { c.Classifier.URL = "" },
		},
		{
			name:   "llm backend without model",
			modify: func(c *Configuration) { c.Classifier.Backend = ClassifierBackendLLM },
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(&cfg)

			err := cfg.Validate()
			if tc.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestFlag(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(file, []byte("sttModel: whisper-large\n"), 0o644)
	require.NoError(t, err)

	cfg := Default()
	f := &Flag{Config: &cfg}

	err = f.Set(file)
	require.NoError(t, err)
	require.True(t, f.IsSet, "IsSet")
	require.Equal(t, file, f.String())
	require.Equal(t, "whisper-large", cfg.STTModel)
}
