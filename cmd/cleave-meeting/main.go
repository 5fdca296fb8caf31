package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/mgoltzsche/cleave-meeting/internal/audio"
	"github.com/mgoltzsche/cleave-meeting/internal/channel"
	"github.com/mgoltzsche/cleave-meeting/internal/cli"
	"github.com/mgoltzsche/cleave-meeting/internal/presenter"
	"github.com/mgoltzsche/cleave-meeting/internal/soundgen"
	"github.com/mgoltzsche/cleave-meeting/internal/tts"
	"github.com/mgoltzsche/cleave-meeting/internal/vad"
	"github.com/mgoltzsche/cleave-meeting/internal/vui"
	"github.com/mgoltzsche/cleave-meeting/pkg/config"
)

// Derived from https://github.com/Xbozon/go-whisper-cpp-server-example/tree/main
// and https://github.com/snakers4/silero-vad/blob/master/examples/go/cmd/main.go

func main() {
	configFile := "/etc/cleave-meeting/config.yaml"
	cfg, err := config.FromFile(configFile)
	configFlag := &config.Flag{File: configFile, Config: &cfg}
	listDevices := false

	flag.Var(configFlag, "config", "Path to the configuration file")
	flag.StringVar(&cfg.ServerURL, "server-url", cfg.ServerURL, "URL pointing to the OpenAI API server used for STT and TTS")
	flag.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "API key of the OpenAI API server")
	flag.StringVar(&cfg.InputDevice, "input-device", cfg.InputDevice, "name or ID of the audio input device")
	flag.StringVar(&cfg.OutputDevice, "output-device", cfg.OutputDevice, "name or ID of the audio output device")
	flag.BoolVar(&listDevices, "list-devices", listDevices, "list the available audio devices and exit")
	flag.IntVar(&cfg.MinVolume, "min-volume", cfg.MinVolume, "min input volume threshold")
	flag.BoolVar(&cfg.VADEnabled, "vad", cfg.VADEnabled, "enable voice activity detection (VAD)")
	flag.StringVar(&cfg.VADModelPath, "vad-model", cfg.VADModelPath, "path to the VAD model")
	flag.StringVar(&cfg.STTModel, "stt-model", cfg.STTModel, "name of the STT model to use")
	flag.StringVar(&cfg.STTLanguage, "stt-language", cfg.STTLanguage, "language spoken in the meeting")
	flag.StringVar(&cfg.TTSModel, "tts-model", cfg.TTSModel, "name of the TTS model used to speak captions, disabled when empty")
	flag.StringVar(&cfg.Classifier.URL, "classifier-url", cfg.Classifier.URL, "URL of the remote sentence classifier")
	flag.Var(backendFlag{&cfg.Classifier.Backend}, "classifier", "classifier backend (remote or llm)")
	flag.StringVar(&cfg.Classifier.ChatModel, "chat-model", cfg.Classifier.ChatModel, "name of the chat model used by the llm classifier")
	cli.ParseFlagsWithEnvVars(flag.CommandLine, "CLEAVE_")

	if !configFlag.IsSet && err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error(err.Error())
		os.Exit(1)
	}

	err = cfg.Validate()
	if err != nil {
		slog.Error(fmt.Sprintf("invalid configuration: %s", err))
		os.Exit(1)
	}

	err = portaudio.Initialize()
	if err != nil {
		slog.Error(fmt.Sprintf("initialize portaudio: %s", err))
		os.Exit(1)
	}
	defer portaudio.Terminate()

	if listDevices {
		audio.PrintDevices(os.Stdout)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("terminating")
	}()

	err = runAudioPipeline(ctx, cfg)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func runAudioPipeline(ctx context.Context, cfg config.Configuration) error {
	audioDevice := &audio.Input{
		Device:      cfg.InputDevice,
		SampleRate:  16000,
		Channels:    1,
		MinVolume:   cfg.MinVolume,
		MinDelay:    time.Second,
		MaxDuration: 25 * time.Second,
	}
	detector := &vad.Detector{
		ModelPath:  cfg.VADModelPath,
		SampleRate: 16000,
	}

	audioInput, err := audioDevice.RecordAudio(ctx)
	if err != nil {
		return err
	}

	if cfg.VADEnabled {
		audioInput, err = detector.DetectVoiceActivity(audioInput)
		if err != nil {
			return err
		}
	}

	meeting, reactions, err := vui.MeetingPipeline(ctx, cfg, audioInput)
	if err != nil {
		return err
	}

	go restartSessionOnEnter(meeting)

	console := &presenter.Console{
		Renderer: &presenter.Renderer{Captions: cfg.Presenter},
		Out:      os.Stdout,
		Sounds:   &soundgen.Generator{SampleRate: 16000},
		Player:   &audio.Output{Device: cfg.OutputDevice},
	}

	if cfg.TTSModel != "" {
		console.Speech = &tts.SpeechGenerator{
			Service: &tts.Client{
				URL:    cfg.ServerURL,
				Model:  cfg.TTSModel,
				APIKey: cfg.APIKey,
				Client: &http.Client{Timeout: time.Duration(cfg.HTTPTimeout)},
			},
			Cached: []string{cfg.Presenter.SevereCaption},
		}
	}

	fmt.Println(cfg.Presenter.DormantCaption)
	fmt.Println("press enter to start a new recording session")

	<-console.Present(ctx, reactions)

	return nil
}

func restartSessionOnEnter(meeting *channel.Channel) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		meeting.Start()
	}
}

type backendFlag struct {
	backend *config.ClassifierBackend
}

func (f backendFlag) Set(s string) error {
	*f.backend = config.ClassifierBackend(s)
	return nil
}

func (f backendFlag) String() string {
	if f.backend == nil {
		return ""
	}

	return string(*f.backend)
}
