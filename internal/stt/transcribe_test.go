package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

func fakeBuffer() *audio.IntBuffer {
	return &audio.IntBuffer{
		Format:         &audio.Format{SampleRate: 16000, NumChannels: 1},
		Data:           make([]int, 1600),
		SourceBitDepth: 16,
	}
}

func TestEncodeWav(t *testing.T) {
	b, err := EncodeWav(fakeBuffer())
	require.NoError(t, err)

	decoder := wav.NewDecoder(bytes.NewReader(b))
	buf, err := decoder.FullPCMBuffer()
	require.NoError(t, err)
	require.Equal(t, 16000, buf.Format.SampleRate, "sample rate")
	require.Len(t, buf.Data, 1600, "samples")
}

func TestTranscribe(t *testing.T) {
	texts := []string{"会議を始めます。", "[BLANK_AUDIO]", "  予算の話は後で。 "}
	i := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "/v1/audio/transcriptions", req.URL.Path, "path")

		err := req.ParseMultipartForm(1 << 20)
		require.NoError(t, err)
		require.Equal(t, "whisper-1", req.FormValue("model"), "model")
		require.Equal(t, "ja", req.FormValue("language"), "language")

		f, _, err := req.FormFile("file")
		require.NoError(t, err)
		b, err := io.ReadAll(f)
		require.NoError(t, err)
		require.Equal(t, "RIFF", string(b[:4]), "wav header")

		if i >= len(texts) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		err = json.NewEncoder(w).Encode(Response{Text: texts[i]})
		require.NoError(t, err)
		i++
	}))
	defer srv.Close()

	testee := &Transcriber{
		Service: &Client{URL: srv.URL, Model: "whisper-1", Language: "ja", Client: srv.Client()},
	}

	input := make(chan audio.Buffer, 4)
	for j := 0; j < 4; j++ {
		input <- fakeBuffer()
	}
	close(input)

	actual := []string{}
	for transcript := range testee.Transcribe(context.Background(), input) {
		actual = append(actual, transcript.Text)
	}

	require.Equal(t, []string{"会議を始めます。", "予算の話は後で。"}, actual)
}
