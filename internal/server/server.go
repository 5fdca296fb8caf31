package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/mgoltzsche/cleave-meeting/internal/channel"
	"github.com/mgoltzsche/cleave-meeting/internal/model"
	"github.com/mgoltzsche/cleave-meeting/internal/presenter"
	"github.com/mgoltzsche/cleave-meeting/internal/soundgen"
	"github.com/mgoltzsche/cleave-meeting/internal/stt"
	"github.com/mgoltzsche/cleave-meeting/pkg/config"
)

const maxRequestBodySize = 16 << 20

const keepAliveInterval = 30 * time.Second

type reactionMessage struct {
	model.Reaction
	Presentation presenter.Presentation `json:"presentation"`
}

type transcriptRequest struct {
	Text string `json:"text"`
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
}

type server struct {
	channels    *channel.Channels
	transcriber *stt.Transcriber
	sounds      presenter.SoundSource
	renderer    *presenter.Renderer
}

// AddRoutes registers the meeting channel API and the web UI on the given mux.
// The channels are closed when ctx is cancelled.
func AddRoutes(ctx context.Context, cfg config.Configuration, webDir string, mux *http.ServeMux) error {
	httpClient := &http.Client{Timeout: time.Duration(cfg.HTTPTimeout)}

	c, err := channel.NewClassifier(cfg, httpClient)
	if err != nil {
		return err
	}

	channels := channel.NewChannels(ctx, cfg, c)

	go func() {
		<-ctx.Done()
		channels.Close()
	}()

	s := &server{
		channels: channels,
		transcriber: &stt.Transcriber{
			Service: &stt.Client{
				URL:      cfg.ServerURL,
				Model:    cfg.STTModel,
				Language: cfg.STTLanguage,
				APIKey:   cfg.APIKey,
				Client:   httpClient,
			},
		},
		sounds: &soundgen.Generator{},
		renderer: &presenter.Renderer{
			Captions: cfg.Presenter,
		},
	}

	mux.Handle("/", http.FileServer(http.Dir(webDir)))
	mux.HandleFunc("POST /channels/{channelId}/session", s.handleStartSession)
	mux.HandleFunc("DELETE /channels/{channelId}/session", s.handleStopSession)
	mux.HandleFunc("POST /channels/{channelId}/transcripts", s.handlePostTranscript)
	mux.HandleFunc("GET /channels/{channelId}/reactions", s.handleReactions)
	mux.HandleFunc("GET /sounds/{file}", s.handleSound)

	return nil
}

func (s *server) channel(w http.ResponseWriter, req *http.Request) (*channel.Channel, bool) {
	c, err := s.channels.GetOrCreate(req.PathValue("channelId"))
	if err != nil {
		slog.Error(err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}

	return c, true
}

func (s *server) handleStartSession(w http.ResponseWriter, req *http.Request) {
	c, ok := s.channel(w, req)
	if !ok {
		return
	}

	writeJSON(w, http.StatusAccepted, sessionResponse{SessionID: c.Start()})
}

func (s *server) handleStopSession(w http.ResponseWriter, req *http.Request) {
	c, ok := s.channel(w, req)
	if !ok {
		return
	}

	sessionID := c.SessionID()
	c.Stop()

	writeJSON(w, http.StatusAccepted, sessionResponse{SessionID: sessionID})
}

func (s *server) handlePostTranscript(w http.ResponseWriter, req *http.Request) {
	c, ok := s.channel(w, req)
	if !ok {
		return
	}

	defer req.Body.Close()

	transcript, ok, err := s.readTranscript(w, req)
	if err != nil {
		err = fmt.Errorf("failed to read transcript from request body: %w", err)
		slog.Warn(err.Error())
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if ok {
		err = c.Publish(req.Context(), transcript)
		if err != nil {
			slog.Warn(err.Error())
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusAccepted)
}

func (s *server) readTranscript(w http.ResponseWriter, req *http.Request) (model.Transcript, bool, error) {
	body := http.MaxBytesReader(w, req.Body, maxRequestBodySize)

	b, err := io.ReadAll(body)
	if err != nil {
		return model.Transcript{}, false, fmt.Errorf("read request body: %w", err)
	}

	contentType := req.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return model.Transcript{}, false, fmt.Errorf("parse content type: %w", err)
	}

	switch mediaType {
	case "text/plain":
		return model.Transcript{Text: string(b)}, len(b) > 0, nil
	case "application/json":
		var r transcriptRequest
		err = json.Unmarshal(b, &r)
		if err != nil {
			return model.Transcript{}, false, fmt.Errorf("decode json: %w", err)
		}

		return model.Transcript{Text: r.Text}, r.Text != "", nil
	case "audio/wav", "audio/wave", "audio/x-wav":
		err = validateWaveAudio(b)
		if err != nil {
			return model.Transcript{}, false, err
		}

		return s.transcriber.TranscribeWav(req.Context(), b)
	default:
		return model.Transcript{}, false, fmt.Errorf("unsupported content type %q", mediaType)
	}
}

func (s *server) handleReactions(w http.ResponseWriter, req *http.Request) {
	c, ok := s.channel(w, req)
	if !ok {
		return
	}

	// Subscribe before responding so that clients don't miss reactions to transcripts they post right after.
	sub := c.Subscribe(req.Context())
	defer sub.Stop()

	var writer io.Writer = w
	ctx := req.Context()
	keepAlive := func() error { return writeKeepAlive(w) }

	if strings.Contains(strings.ToLower(req.Header.Get("Connection")), "upgrade") {
		slog.Debug("accepting websocket connection")

		conn, err := websocket.Accept(w, req, nil)
		if err != nil {
			slog.Warn(fmt.Sprintf("accept websocket connection: %s", err))
			return
		}
		defer conn.CloseNow()

		// The client does not send messages but the connection needs to be read to process close frames.
		ctx = conn.CloseRead(ctx)
		writer = &websocketWriter{
			Ctx:       ctx,
			Websocket: conn,
		}
		keepAlive = func() error { return conn.Ping(ctx) }
	} else {
		h := w.Header()
		h.Set("Content-Type", "application/x-ndjson")
		h.Set("X-Accel-Buffering", "no") // tell reverse proxy not to buffer
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.WriteHeader(http.StatusOK)
		flush(w)
	}

	err := s.streamReactions(ctx, sub.ResultChan(), writer, keepAlive)
	if err != nil && ctx.Err() == nil {
		slog.Warn(fmt.Sprintf("failed to stream reactions: %s", err))
	}
}

func (s *server) streamReactions(ctx context.Context, ch <-chan model.Reaction, w io.Writer, keepAlive func() error) error {
	encoder := json.NewEncoder(w)

	for {
		select {
		case r, ok := <-ch:
			if !ok {
				return nil
			}

			err := encoder.Encode(reactionMessage{
				Reaction:     r,
				Presentation: s.renderer.Render(r),
			})
			if err != nil {
				return fmt.Errorf("write reaction: %w", err)
			}

			flush(w)
		case <-time.After(keepAliveInterval):
			err := keepAlive()
			if err != nil {
				return fmt.Errorf("send keep-alive: %w", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *server) handleSound(w http.ResponseWriter, req *http.Request) {
	name, found := strings.CutSuffix(req.PathValue("file"), ".wav")
	if !found {
		http.NotFound(w, req)
		return
	}

	tier, err := model.ParseTier(name)
	if err != nil {
		http.NotFound(w, req)
		return
	}

	b, err := s.sounds.Sound(tier)
	if err != nil {
		if errors.Is(err, soundgen.ErrNoSound) {
			http.NotFound(w, req)
			return
		}

		slog.Error(err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Warn(fmt.Sprintf("write response: %s", err))
	}
}

func writeKeepAlive(w io.Writer) error {
	_, err := w.Write([]byte("\n"))
	if err != nil {
		return err
	}

	flush(w)

	return nil
}

func flush(w io.Writer) {
	flusher, ok := w.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}
