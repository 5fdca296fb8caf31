package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

var _ Classifier = &Client{}

type request struct {
	Sentence string `json:"sentence"`
}

// Client calls the remote cleave meeting endpoint.
type Client struct {
	URL    string
	Client *http.Client
}

func (c *Client) Classify(ctx context.Context, sentence string) (Result, error) {
	body, err := json.Marshal(request{Sentence: sentence})
	if err != nil {
		return Result{}, fmt.Errorf("marshal classification request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("new classification request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return c.send(req)
}

func (c *Client) send(req *http.Request) (Result, error) {
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{}, &NetworkError{fmt.Errorf("classify: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Result{}, &ServerError{StatusCode: resp.StatusCode}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, &NetworkError{fmt.Errorf("read classification response body: %w", err)}
	}

	return decodeResult(b)
}

// decodeResult requires all fields of the result to be present.
func decodeResult(b []byte) (Result, error) {
	var r struct {
		ID       *int64  `json:"id"`
		Sentence *string `json:"sentence"`
		Cleave   *bool   `json:"cleave"`
		Reason   *string `json:"reason"`
	}

	err := json.Unmarshal(b, &r)
	if err != nil {
		return Result{}, &DecodeError{fmt.Errorf("unmarshal classification response: %w", err)}
	}

	if r.ID == nil || r.Sentence == nil || r.Cleave == nil || r.Reason == nil {
		return Result{}, &DecodeError{fmt.Errorf("classification response is missing fields: %s", string(b))}
	}

	return Result{
		ID:       *r.ID,
		Sentence: *r.Sentence,
		Cleave:   *r.Cleave,
		Reason:   *r.Reason,
	}, nil
}
