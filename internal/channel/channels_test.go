package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mgoltzsche/cleave-meeting/internal/classifier"
	"github.com/mgoltzsche/cleave-meeting/internal/model"
	"github.com/mgoltzsche/cleave-meeting/internal/reaction"
	"github.com/mgoltzsche/cleave-meeting/pkg/config"
	"github.com/stretchr/testify/require"
)

// fakeClassifierServer marks every sentence containing "脱線" as derailing.
func fakeClassifierServer(t *testing.T) *httptest.Server {
	var id atomic.Int64

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Sentence string `json:"sentence"`
		}

		err := json.NewDecoder(req.Body).Decode(&body)
		require.NoError(t, err)

		cleave := strings.Contains(body.Sentence, "脱線")
		reason := ""
		if cleave {
			reason = "議題と関係ありません"
		}

		w.WriteHeader(http.StatusCreated)
		err = json.NewEncoder(w).Encode(model.ClassificationResult{
			ID:       id.Add(1),
			Sentence: body.Sentence,
			Cleave:   cleave,
			Reason:   reason,
		})
		require.NoError(t, err)
	}))
}

func newTestChannels(t *testing.T) *Channels {
	srv := fakeClassifierServer(t)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Classifier.URL = srv.URL

	c, err := NewClassifier(cfg, srv.Client())
	require.NoError(t, err)

	channels := NewChannels(context.Background(), cfg, c)
	t.Cleanup(channels.Close)

	return channels
}

func receive(t *testing.T, ch <-chan Reaction, n int) []Reaction {
	reactions := make([]Reaction, 0, n)

	for len(reactions) < n {
		select {
		case r, ok := <-ch:
			require.True(t, ok, "subscription closed early")
			reactions = append(reactions, r)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for reaction %d", len(reactions)+1)
		}
	}

	return reactions
}

func TestChannelReactions(t *testing.T) {
	ctx := context.Background()
	testee, err := newTestChannels(t).GetOrCreate("standup")
	require.NoError(t, err)

	sessionID := testee.Start()
	require.Equal(t, sessionID, testee.SessionID(), "session id")

	sub := testee.Subscribe(ctx)
	defer sub.Stop()

	err = testee.Publish(ctx, model.Transcript{Text: "今日の議題です。脱線しますが。脱線ついでに"})
	require.NoError(t, err)

	reactions := receive(t, sub.ResultChan(), 3)

	tiers := []model.Tier{reactions[0].Tier, reactions[1].Tier, reactions[2].Tier}
	require.Equal(t, []model.Tier{model.TierDormant, model.TierCalm, model.TierMild}, tiers)
	require.Equal(t, "議題と関係ありません", reactions[2].Reason, "reason")
	require.Equal(t, int64(3), reactions[2].Seq, "seq")
	require.Equal(t, sessionID, reactions[2].SessionID, "session id of reaction")
}

func TestChannelRestartResetsHistory(t *testing.T) {
	ctx := context.Background()
	testee, err := newTestChannels(t).GetOrCreate("retro")
	require.NoError(t, err)

	sub := testee.Subscribe(ctx)
	defer sub.Stop()

	firstID := testee.Start()
	err = testee.Publish(ctx, model.Transcript{Text: "脱線。脱線"})
	require.NoError(t, err)
	require.Equal(t, model.TierMild, receive(t, sub.ResultChan(), 2)[1].Tier)

	secondID := testee.Start()
	require.NotEqual(t, firstID, secondID, "session id")

	err = testee.Publish(ctx, model.Transcript{Text: "本題です"})
	require.NoError(t, err)

	r := receive(t, sub.ResultChan(), 1)[0]
	require.Equal(t, model.TierDormant, r.Tier)
	require.Equal(t, int64(1), r.Seq, "seq")
	require.Equal(t, secondID, r.SessionID)
}

func TestChannelsGetOrCreate(t *testing.T) {
	channels := newTestChannels(t)

	a, err := channels.GetOrCreate("a")
	require.NoError(t, err)
	a2, err := channels.GetOrCreate("a")
	require.NoError(t, err)
	b, err := channels.GetOrCreate("b")
	require.NoError(t, err)

	require.Same(t, a, a2)
	require.NotSame(t, a, b)
}

func TestChannelsRejectAmbiguousSeverity(t *testing.T) {
	cfg := config.Default()
	cfg.Reaction.Severity = reaction.Severity{}

	channels := NewChannels(context.Background(), cfg, &classifier.Client{})
	defer channels.Close()

	_, err := channels.GetOrCreate("a")
	require.ErrorIs(t, err, reaction.ErrSeverityModeUnset)
}

func TestChannelPublishAfterClose(t *testing.T) {
	testee, err := newTestChannels(t).GetOrCreate("closed")
	require.NoError(t, err)

	testee.Close()

	// fill the queue since a select may pick any ready case
	for i := 0; i < cap(testee.input); i++ {
		testee.input <- model.Transcript{}
	}

	err = testee.Publish(context.Background(), model.Transcript{Text: "a"})
	require.Error(t, err)

	sub := testee.Subscribe(context.Background())
	_, ok := <-sub.ResultChan()
	require.False(t, ok, "subscription channel open after close")
}

func TestNewClassifier(t *testing.T) {
	cfg := config.Default()

	c, err := NewClassifier(cfg, nil)
	require.NoError(t, err)
	require.IsType(t, &classifier.Client{}, c)

	cfg.Classifier.Backend = config.ClassifierBackendLLM
	cfg.Classifier.ChatModel = "qwen2.5:3b"
	c, err = NewClassifier(cfg, nil)
	require.NoError(t, err)
	require.IsType(t, &classifier.LLM{}, c)

	cfg.Classifier.Backend = "unknown"
	_, err = NewClassifier(cfg, nil)
	require.Error(t, err)
}
