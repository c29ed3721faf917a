package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/placescout/placescout/internal/config"
	pubmemory "github.com/placescout/placescout/internal/publisher/memory"
	"github.com/placescout/placescout/internal/scout"
	storememory "github.com/placescout/placescout/internal/store/memory"
)

type fakeRunner struct {
	result *scout.RunResult
	err    error
}

func (r *fakeRunner) Run(_ context.Context, _ string, _ scout.RunParameters) (*scout.RunResult, error) {
	return r.result, r.err
}

type seqIDGen struct{ next int }

func (g *seqIDGen) NewID() (string, error) {
	g.next++
	return "run-" + string(rune('0'+g.next)), nil
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type fixture struct {
	store     *storememory.RunStore
	publisher *pubmemory.Publisher
	server    *Server
}

func newFixture(runner Runner, cfg config.Config) *fixture {
	store := storememory.NewRunStore()
	publisher := pubmemory.New()
	server := NewServer(store, runner, publisher, &seqIDGen{}, systemClock{}, cfg, zap.NewNop())
	return &fixture{store: store, publisher: publisher, server: server}
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSubmitRunAcceptsAndCompletes(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{result: &scout.RunResult{
		SearchString: "coffee Springfield",
		TotalResults: 2,
		Records:      make([]scout.EntityRecord, 2),
	}}
	f := newFixture(runner, config.Config{PubSub: config.PubSubConfig{TopicName: "run-events"}})

	rec := doJSON(t, f.server.Handler(), http.MethodPost, "/v1/runs", `{"query":"coffee","location":"Springfield"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	runID := resp["run_id"]
	require.NotEmpty(t, runID)
	require.Equal(t, "queued", resp["status"])

	require.Eventually(t, func() bool {
		run, err := f.store.GetRun(context.Background(), runID)
		return err == nil && run.Status == scout.RunStatusSucceeded
	}, 2*time.Second, 10*time.Millisecond)

	run, err := f.store.GetRun(context.Background(), runID)
	require.NoError(t, err)
	require.Equal(t, 2, run.ResultCount)

	messages := f.publisher.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, "run-events", messages[0].Topic)
}

func TestSubmitRunMaxResults(t *testing.T) {
	t.Parallel()

	t.Run("omitted gets the default", func(t *testing.T) {
		t.Parallel()
		f := newFixture(&fakeRunner{result: &scout.RunResult{}}, config.Config{})

		rec := doJSON(t, f.server.Handler(), http.MethodPost, "/v1/runs", `{"query":"coffee"}`)
		require.Equal(t, http.StatusAccepted, rec.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		run, err := f.store.GetRun(context.Background(), resp["run_id"])
		require.NoError(t, err)
		require.Equal(t, scout.DefaultMaxResults, run.Params.MaxResults)
	})

	t.Run("explicit zero is kept", func(t *testing.T) {
		t.Parallel()
		f := newFixture(&fakeRunner{result: &scout.RunResult{}}, config.Config{})

		rec := doJSON(t, f.server.Handler(), http.MethodPost, "/v1/runs", `{"query":"coffee","max_results":0}`)
		require.Equal(t, http.StatusAccepted, rec.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		run, err := f.store.GetRun(context.Background(), resp["run_id"])
		require.NoError(t, err)
		require.Zero(t, run.Params.MaxResults)
		require.Zero(t, run.Params.DetailedResults)
	})
}

func TestSubmitRunFailureIsRecorded(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: scout.ErrPoolExhausted}
	f := newFixture(runner, config.Config{})

	rec := doJSON(t, f.server.Handler(), http.MethodPost, "/v1/runs", `{"query":"coffee"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Eventually(t, func() bool {
		run, err := f.store.GetRun(context.Background(), resp["run_id"])
		return err == nil && run.Status == scout.RunStatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	run, err := f.store.GetRun(context.Background(), resp["run_id"])
	require.NoError(t, err)
	require.Contains(t, run.ErrorText, "pool exhausted")
}

func TestSubmitRunRejectsBadRequests(t *testing.T) {
	t.Parallel()

	f := newFixture(&fakeRunner{}, config.Config{})

	rec := doJSON(t, f.server.Handler(), http.MethodPost, "/v1/runs", `{"query":"  "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, f.server.Handler(), http.MethodPost, "/v1/runs", `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(&fakeRunner{}, config.Config{})
	rec := doJSON(t, f.server.Handler(), http.MethodGet, "/v1/runs/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRunRecords(t *testing.T) {
	t.Parallel()

	f := newFixture(&fakeRunner{}, config.Config{})
	ctx := context.Background()

	require.NoError(t, f.store.CreateRun(ctx, scout.Run{ID: "r1", Status: scout.RunStatusRunning, StartedAt: time.Now()}))

	// Result not available until the run completes.
	rec := doJSON(t, f.server.Handler(), http.MethodGet, "/v1/runs/r1/records", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	result := &scout.RunResult{SearchString: "coffee", TotalResults: 1, Records: make([]scout.EntityRecord, 1)}
	require.NoError(t, f.store.CompleteRun(ctx, "r1", scout.RunStatusSucceeded, "", result, time.Second))

	rec = doJSON(t, f.server.Handler(), http.MethodGet, "/v1/runs/r1/records", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got scout.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "coffee", got.SearchString)
	require.Len(t, got.Records, 1)
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	f := newFixture(&fakeRunner{}, config.Config{})
	ctx := context.Background()
	require.NoError(t, f.store.CreateRun(ctx, scout.Run{ID: "r1", StartedAt: time.Now()}))
	require.NoError(t, f.store.CreateRun(ctx, scout.Run{ID: "r2", StartedAt: time.Now()}))

	rec := doJSON(t, f.server.Handler(), http.MethodGet, "/v1/runs?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Runs []scout.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 1)
	require.Equal(t, "r2", resp.Runs[0].ID)

	rec = doJSON(t, f.server.Handler(), http.MethodGet, "/v1/runs?limit=zero", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Auth: config.AuthConfig{Enabled: true, APIKey: "sekrit"}}
	f := newFixture(&fakeRunner{}, cfg)

	rec := doJSON(t, f.server.Handler(), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-API-Key", "sekrit")
	rr := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	f := newFixture(&fakeRunner{}, config.Config{})
	require.Equal(t, http.StatusOK, doJSON(t, f.server.Handler(), http.MethodGet, "/healthz", "").Code)
	require.Equal(t, http.StatusOK, doJSON(t, f.server.Handler(), http.MethodGet, "/readyz", "").Code)
}
