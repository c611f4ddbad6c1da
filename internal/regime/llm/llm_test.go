package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/riskladder/internal/models"
	"github.com/songzhibin97/riskladder/internal/regime"
)

func uptrend(n int) []models.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		c := 100 * math.Pow(1.004, float64(i))
		bars[i] = models.Bar{
			Symbol: "BTCUSDT", OpenTime: start.Add(time.Duration(i) * time.Hour),
			Open: c, High: c * 1.002, Low: c * 0.998, Close: c,
		}
	}
	return bars
}

func newTestDetector(t *testing.T, status int, content string, calls *atomic.Int32) *Detector {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "BTCUSDT")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(server.Close)

	return New(Config{
		Provider: ProviderOpenAI,
		APIKey:   "test-key",
		Model:    "test-model",
		BaseURL:  server.URL + "/v1",
		Timeout:  5 * time.Second,
	}, regime.NewIndicatorDetector(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDetector_UsesModelAnswer(t *testing.T) {
	var calls atomic.Int32
	d := newTestDetector(t, http.StatusOK, " sideways.\n", &calls)

	got, err := d.DetectRegime(context.Background(), uptrend(60))
	require.NoError(t, err)
	assert.Equal(t, models.RegimeSideways, got)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDetector_FallsBackOnGarbage(t *testing.T) {
	var calls atomic.Int32
	d := newTestDetector(t, http.StatusOK, "I think the market is going to the moon", &calls)

	got, err := d.DetectRegime(context.Background(), uptrend(60))
	require.NoError(t, err)
	assert.Equal(t, models.RegimeStrongBull, got)
}

func TestDetector_FallsBackOnAPIError(t *testing.T) {
	var calls atomic.Int32
	d := newTestDetector(t, http.StatusTooManyRequests, "", &calls)

	got, err := d.DetectRegime(context.Background(), uptrend(60))
	require.NoError(t, err)
	assert.Equal(t, models.RegimeStrongBull, got)
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestDetector_TooFewBarsSkipsModel(t *testing.T) {
	var calls atomic.Int32
	d := newTestDetector(t, http.StatusOK, "BULL", &calls)

	got, err := d.DetectRegime(context.Background(), uptrend(10))
	require.NoError(t, err)
	assert.Equal(t, models.RegimeUnknown, got)
	assert.Zero(t, calls.Load())
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		answer string
		want   models.Regime
	}{
		{"STRONG_BULL", models.RegimeStrongBull},
		{"`volatile_bear`", models.RegimeVolatileBear},
		{"Regime: CHOPPY.", models.RegimeChoppy},
		{"strong-bear", models.RegimeStrongBear},
		{"strong bull", models.RegimeStrongBull},
		{"Volatile Bear", models.RegimeVolatileBear},
		{"The market is in a strong bull phase.", models.RegimeStrongBull},
		{"bull", models.RegimeBull},
		{"no idea", models.RegimeUnknown},
		{"", models.RegimeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			assert.Equal(t, tt.want, parseAnswer(tt.answer))
		})
	}
}

func TestNew_DeepSeekDefaults(t *testing.T) {
	d := New(Config{Provider: ProviderDeepSeek, APIKey: "k"}, nil, nil)
	assert.Equal(t, deepSeekModel, d.model)
	assert.NotNil(t, d.fallback)
}

func TestDetector_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set")
	}

	d := New(Config{Provider: ProviderOpenAI, APIKey: apiKey}, nil, nil)
	got, err := d.DetectRegime(context.Background(), uptrend(60))
	require.NoError(t, err)
	assert.True(t, got.Valid())
}
