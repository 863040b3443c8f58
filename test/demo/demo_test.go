//go:build integration_test

package demo

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/victornm/adwatch/internal/domain"
	"github.com/victornm/adwatch/internal/watchsession"
)

// The demo walks one viewer through the full flow against a running server:
// fetch the catalog, play an ad through the session machine, answer its
// questions, then submit the watch and check the credited balance.
//
//	TOKEN=<bearer token> go test -tags integration_test ./test/demo/
const baseURL = "http://localhost:8080"

func TestWatchFlow(t *testing.T) {
	token := os.Getenv("TOKEN")
	if token == "" {
		t.Skip("TOKEN not set")
	}

	ads := listAds(t)
	require.NotEmpty(t, ads, "catalog is empty, create an ad first")
	ad := ads[0]
	t.Logf("Watching %q (%ds, $%.2f)", ad.Title, ad.Duration, ad.Reward)

	before := getBalance(t, token)

	s := watchsession.New(toDomain(ad), watchsession.WithObserver(func(p watchsession.Progress) {
		t.Logf("  %.0f%% watched", p.Percent)
	}))

	start := time.Now()
	require.NoError(t, s.Start(start))
	time.Sleep(3 * time.Second)
	require.NoError(t, s.FinishPlayback(time.Now()))

	for _, q := range ad.Questions {
		require.NotEmpty(t, q.Options)
		require.NoError(t, s.SetAnswer(q.ID, q.Options[0]))
	}
	require.NoError(t, s.SetFeedback("demo run"))

	res, err := s.Complete(time.Now())
	require.NoError(t, err)

	reward := submitWatch(t, token, res)
	t.Logf("Credited $%.2f", reward)
	require.InDelta(t, ad.Reward, reward, 0.001)

	after := getBalance(t, token)
	require.InDelta(t, before+reward, after, 0.001)
	t.Logf("Balance: $%.2f -> $%.2f", before, after)
}

type adPayload struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Duration  int     `json:"duration"`
	Reward    float64 `json:"reward"`
	Questions []struct {
		ID       string   `json:"id"`
		Question string   `json:"question"`
		Options  []string `json:"options"`
	} `json:"questions"`
}

func toDomain(a adPayload) domain.Ad {
	ad := domain.Ad{ID: a.ID, Title: a.Title, Duration: a.Duration}
	for _, q := range a.Questions {
		ad.Questions = append(ad.Questions, domain.Question{ID: q.ID, Question: q.Question, Options: q.Options})
	}
	return ad
}

func listAds(t *testing.T) []adPayload {
	var ads []adPayload
	doJSON(t, http.MethodGet, "/api/ads", "", nil, &ads)
	return ads
}

func getBalance(t *testing.T, token string) float64 {
	var body struct {
		Balance float64 `json:"balance"`
	}
	doJSON(t, http.MethodGet, "/api/user", token, nil, &body)
	return body.Balance
}

func submitWatch(t *testing.T, token string, res *watchsession.Result) float64 {
	answers := make([]map[string]string, 0, len(res.Answers))
	for _, a := range res.Answers {
		answers = append(answers, map[string]string{"questionId": a.QuestionID, "value": a.Answer})
	}

	var body struct {
		Reward float64 `json:"reward"`
	}
	doJSON(t, http.MethodPost, "/api/ads/watch", token, map[string]any{
		"adId":      res.AdID,
		"watchTime": res.WatchTime,
		"answers":   answers,
		"feedback":  res.Feedback,
	}, &body)

	return body.Reward
}

func doJSON(t *testing.T, method, path, token string, in, out any) {
	t.Helper()

	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(method, baseURL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, "%s %s: %s", method, path, b)

	if out != nil {
		require.NoError(t, json.Unmarshal(b, out))
	}
}
