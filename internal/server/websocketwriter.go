package server

import (
	"bytes"
	"context"
	"io"

	"github.com/coder/websocket"
)

var _ io.Writer = &websocketWriter{}

// websocketWriter sends every Write as a text message.
type websocketWriter struct {
	Ctx       context.Context
	Websocket *websocket.Conn
}

func (w *websocketWriter) Write(b []byte) (int, error) {
	err := w.Websocket.Write(w.Ctx, websocket.MessageText, bytes.TrimSuffix(b, []byte("\n")))
	if err != nil {
		return 0, err
	}

	return len(b), nil
}
