package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mgoltzsche/cleave-meeting/internal/model"
	"github.com/mgoltzsche/cleave-meeting/internal/presenter"
	"github.com/mgoltzsche/cleave-meeting/internal/stt"
	"github.com/mgoltzsche/cleave-meeting/pkg/config"
	"github.com/stretchr/testify/require"
)

// fakeBackend serves both the classifier endpoint and the transcription API.
// Sentences containing "脱線" are classified as derailing.
func fakeBackend(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /cleave_meeting", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Sentence string `json:"sentence"`
		}

		err := json.NewDecoder(req.Body).Decode(&body)
		require.NoError(t, err)

		cleave := strings.Contains(body.Sentence, "脱線")
		reason := ""
		if cleave {
			reason = "本題から外れています"
		}

		err = json.NewEncoder(w).Encode(model.ClassificationResult{ID: 1, Sentence: body.Sentence, Cleave: cleave, Reason: reason})
		require.NoError(t, err)
	})
	mux.HandleFunc("POST /v1/audio/transcriptions", func(w http.ResponseWriter, req *http.Request) {
		err := json.NewEncoder(w).Encode(stt.Response{Text: "脱線です。脱線"})
		require.NoError(t, err)
	})

	return httptest.NewServer(mux)
}

func newTestServer(t *testing.T) *httptest.Server {
	backend := fakeBackend(t)
	t.Cleanup(backend.Close)

	webDir := t.TempDir()
	err := os.WriteFile(filepath.Join(webDir, "index.html"), []byte("<html>cleave</html>"), 0o644)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.ServerURL = backend.URL
	cfg.Classifier.URL = backend.URL + "/cleave_meeting"

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	mux := http.NewServeMux()
	err = AddRoutes(ctx, cfg, webDir, mux)
	require.NoError(t, err)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func post(t *testing.T, url, contentType string, body []byte) *http.Response {
	resp, err := http.Post(url, contentType, bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func startSession(t *testing.T, srv *httptest.Server, channelID string) string {
	resp := post(t, srv.URL+"/channels/"+channelID+"/session", "", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, "status")

	var session sessionResponse
	err := json.NewDecoder(resp.Body).Decode(&session)
	require.NoError(t, err)
	require.NotEmpty(t, session.SessionID, "session id")

	return session.SessionID
}

func readReactions(t *testing.T, scanner *bufio.Scanner, n int) []reactionMessage {
	reactions := make([]reactionMessage, 0, n)

	for len(reactions) < n && scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var r reactionMessage
		err := json.Unmarshal(line, &r)
		require.NoError(t, err)
		reactions = append(reactions, r)
	}

	require.NoError(t, scanner.Err())
	require.Len(t, reactions, n, "reactions")

	return reactions
}

func TestReactionStreamNDJSON(t *testing.T) {
	srv := newTestServer(t)
	sessionID := startSession(t, srv, "standup")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/channels/standup/reactions", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "status")
	require.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	for _, tc := range []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=utf-8", "本日の議題です。脱線します"},
		{"application/json", `{"text":"脱線ついでに？"}`},
	} {
		resp := post(t, srv.URL+"/channels/standup/transcripts", tc.contentType, []byte(tc.body))
		require.Equal(t, http.StatusAccepted, resp.StatusCode, "status of %s transcript", tc.contentType)
	}

	reactions := readReactions(t, bufio.NewScanner(resp.Body), 3)

	require.Equal(t, []model.Tier{model.TierDormant, model.TierCalm, model.TierMild},
		[]model.Tier{reactions[0].Tier, reactions[1].Tier, reactions[2].Tier})
	require.Equal(t, sessionID, reactions[2].SessionID, "session id")
	require.Equal(t, presenter.Presentation{
		Image:   presenter.ImageAngry,
		Caption: "本題から外れています",
		Sound:   presenter.SoundCleave,
	}, reactions[2].Presentation)
	require.Equal(t, config.Default().Presenter.DormantCaption, reactions[0].Presentation.Caption, "dormant caption")
}

func TestReactionStreamWebsocket(t *testing.T) {
	srv := newTestServer(t)
	startSession(t, srv, "retro")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/channels/retro/reactions", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	wavData, err := stt.EncodeWav(&audio.IntBuffer{
		Format:         &audio.Format{SampleRate: 16000, NumChannels: 1},
		Data:           make([]int, 16000),
		SourceBitDepth: 16,
	})
	require.NoError(t, err)

	resp := post(t, srv.URL+"/channels/retro/transcripts", "audio/wav", wavData)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, "status")

	tiers := []model.Tier{}
	for i := 0; i < 2; i++ {
		msgType, b, err := conn.Read(ctx)
		require.NoError(t, err)
		require.Equal(t, websocket.MessageText, msgType, "message type")

		var r reactionMessage
		err = json.Unmarshal(b, &r)
		require.NoError(t, err)
		tiers = append(tiers, r.Tier)
	}

	require.Equal(t, []model.Tier{model.TierCalm, model.TierMild}, tiers)

	conn.Close(websocket.StatusNormalClosure, "")
}

func TestStopSession(t *testing.T) {
	srv := newTestServer(t)
	sessionID := startSession(t, srv, "planning")

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/channels/planning/session", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode, "status")

	var session sessionResponse
	err = json.NewDecoder(resp.Body).Decode(&session)
	require.NoError(t, err)
	require.Equal(t, sessionID, session.SessionID, "stopped session id")
}

func TestPostTranscriptInvalid(t *testing.T) {
	srv := newTestServer(t)

	for _, tc := range []struct {
		name        string
		contentType string
		body        string
	}{
		{"malformed json", "application/json", `{"text":`},
		{"malformed wav", "audio/wav", "RIFF...."},
		{"unsupported content type", "image/png", "png"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/channels/c/transcripts", tc.contentType, []byte(tc.body))
			require.Equal(t, http.StatusBadRequest, resp.StatusCode, "status")
		})
	}
}

func TestSounds(t *testing.T) {
	srv := newTestServer(t)

	for _, tc := range []struct {
		path   string
		status int
	}{
		{"/sounds/mild.wav", http.StatusOK},
		{"/sounds/escalating.wav", http.StatusOK},
		{"/sounds/severe.wav", http.StatusOK},
		{"/sounds/calm.wav", http.StatusNotFound},
		{"/sounds/dormant.wav", http.StatusNotFound},
		{"/sounds/unknown.wav", http.StatusNotFound},
		{"/sounds/mild.mp3", http.StatusNotFound},
	} {
		t.Run(tc.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tc.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tc.status, resp.StatusCode, "status")

			if tc.status == http.StatusOK {
				require.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))

				b := new(bytes.Buffer)
				_, err = b.ReadFrom(resp.Body)
				require.NoError(t, err)
				require.True(t, wav.NewDecoder(bytes.NewReader(b.Bytes())).IsValidFile(), "valid wav")
			}
		})
	}
}

func TestWebUI(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "status")
}
