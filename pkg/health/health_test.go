package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func get(t *testing.T, h http.HandlerFunc) (int, statusBody) {
	t.Helper()
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body statusBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func passing() CheckFunc {
	return func(context.Context) error { return nil }
}

func TestLivez(t *testing.T) {
	t.Run("healthy by default", func(t *testing.T) {
		h := New()
		h.Add(Check{Name: "goroutines", Kind: Liveness, Func: passing()})

		code, body := get(t, h.Livez)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body.Status)
		assert.Empty(t, body.Checks)
	})

	t.Run("unhealthy after threshold", func(t *testing.T) {
		h := New()
		h.Add(Check{Name: "db", Kind: Liveness, Func: failing("connection refused")})
		p := h.probes[0]
		ctx := context.Background()

		p.run(ctx)
		p.run(ctx)
		code, _ := get(t, h.Livez)
		assert.Equal(t, http.StatusOK, code, "two failures stay below the threshold")

		p.run(ctx)
		code, body := get(t, h.Livez)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", body.Status)
		assert.Equal(t, "connection refused", body.Checks["db"])
	})

	t.Run("readiness checks do not affect liveness", func(t *testing.T) {
		h := New()
		h.Add(Check{Name: "db", Kind: Readiness, Func: failing("down"), FailureThreshold: 1})
		h.probes[0].run(context.Background())

		code, _ := get(t, h.Livez)
		assert.Equal(t, http.StatusOK, code)
	})
}

func TestReadyz(t *testing.T) {
	t.Run("not ready until marked", func(t *testing.T) {
		h := New()
		code, body := get(t, h.Readyz)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "service is not ready", body.Checks["_readiness"])
		assert.False(t, h.IsReady())

		h.SetReady(true)
		code, _ = get(t, h.Readyz)
		assert.Equal(t, http.StatusOK, code)
		assert.True(t, h.IsReady())
	})

	t.Run("failing readiness check", func(t *testing.T) {
		h := New()
		h.SetReady(true)
		h.Add(Check{Name: "postgres", Kind: Readiness, Func: failing("timeout"), FailureThreshold: 1})
		h.probes[0].run(context.Background())

		code, body := get(t, h.Readyz)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "timeout", body.Checks["postgres"])
		assert.False(t, h.IsReady())
	})

	t.Run("recovers after success threshold", func(t *testing.T) {
		var fail atomic.Bool
		fail.Store(true)
		h := New()
		h.SetReady(true)
		h.Add(Check{
			Name: "flaky",
			Kind: Readiness,
			Func: func(context.Context) error {
				if fail.Load() {
					return errors.New("flaky")
				}
				return nil
			},
			FailureThreshold: 1,
			SuccessThreshold: 2,
		})
		p := h.probes[0]
		ctx := context.Background()

		p.run(ctx)
		assert.False(t, h.IsReady())

		fail.Store(false)
		p.run(ctx)
		assert.False(t, h.IsReady(), "one pass is below the success threshold")
		p.run(ctx)
		assert.True(t, h.IsReady())
	})
}

func TestRun(t *testing.T) {
	var calls atomic.Int32
	h := New()
	h.SetReady(true)
	h.Add(Check{
		Name: "counter",
		Kind: Readiness,
		Func: func(context.Context) error {
			calls.Add(1)
			return errors.New("always")
		},
		FailureThreshold: 2,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return !h.IsReady() }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, GoroutineCountCheck(1_000_000)(ctx))
	assert.Error(t, GoroutineCountCheck(0)(ctx))

	assert.NoError(t, PingCheck(pingerFunc(func(context.Context) error { return nil }))(ctx))
	err := PingCheck(pingerFunc(func(context.Context) error { return errors.New("refused") }))(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}
