package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Dimple-Kanwar/SafeStake.AI/internal/bus"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/coordinator"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/execution"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/id"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/model"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/oracle"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/portfolio"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/strategy"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	b := bus.New(zerolog.Nop())
	ids := id.NewSequence()
	prices := oracle.NewStatic(zerolog.Nop())
	coord := coordinator.New(b, ids, nil, time.Minute, zerolog.Nop())
	analyzer := portfolio.NewAnalyzer(portfolio.NewFixedBalances(map[string]map[string]float64{
		"ethereum": {"ETH": 2},
	}), prices, zerolog.Nop())
	optimizer := strategy.NewWorker(b, analyzer, prices, zerolog.Nop())
	executor := execution.NewExecutor(b, ids, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go coord.Run(ctx)
	go optimizer.Run(ctx)
	go executor.Run(ctx)

	return New(Config{Port: 0, Log: zerolog.Nop()}, coord)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) model.Envelope {
	t.Helper()
	var env model.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.Equal(t, model.EnvelopeVersion, env.Version)
	return env
}

func TestSubmitAndPoll(t *testing.T) {
	s := newTestServer(t)

	body := `{"user_id":"alice","target_amount":0.5,"target_chain":"ethereum","target_token":"ETH","risk_tolerance":"moderate"}`
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/workflows/", strings.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)
	workflowID := env.Data.(map[string]any)["workflow_id"].(string)
	require.NotEmpty(t, workflowID)

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/workflows/"+workflowID, nil))
		if rec.Code != http.StatusOK {
			return false
		}
		var env model.Envelope
		if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
			return false
		}
		wf, _ := env.Data.(map[string]any)
		return wf["status"] == string(model.StatusCompleted)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubmitRejectsBadRequest(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/workflows/", strings.NewReader("{not json")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)

	body := `{"user_id":"alice","target_amount":-1,"target_chain":"ethereum","target_token":"ETH","risk_tolerance":"moderate"}`
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/workflows/", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUnknownWorkflow(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/workflows/wf_missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	require.False(t, env.Success)
	require.Equal(t, "UNKNOWN_WORKFLOW", env.Error.Type)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)
}
