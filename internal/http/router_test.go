package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientpulse/pkg/requestcontext"
)

type echoModule struct{}

func (echoModule) Register(r chi.Router) {
	r.Get("/echo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(requestcontext.RequestID(r.Context())))
	})
}

func TestRouterMountsModules(t *testing.T) {
	router := NewRouter(Config{Gatherer: prometheus.NewRegistry(), Modules: []Registrar{echoModule{}}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/echo", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.String(), "request id middleware runs before modules")
	assert.Equal(t, rec.Body.String(), rec.Header().Get("X-Request-ID"))
}

func TestRouterHealthEndpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	router := NewRouter(Config{
		Gatherer: reg,
		Checks: map[string]Pinger{
			"postgres": PingFunc(func(context.Context) error { return nil }),
			"redis":    PingFunc(func(context.Context) error { return errors.New("connection refused") }),
			"kafka":    nil,
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"postgres":"ok","redis":"connection refused"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
