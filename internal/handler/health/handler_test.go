package health

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(checks map[string]Check) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewHandler(checks).RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func TestLiveness(t *testing.T) {
	router := setup(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"UP"`)
}

func TestReadinessAllUp(t *testing.T) {
	router := setup(map[string]Check{
		"reasoning": func(ctx context.Context) error { return nil },
		"store":     func(ctx context.Context) error { return nil },
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"reasoning":"UP"`)
	assert.Contains(t, w.Body.String(), `"store":"UP"`)
}

func TestReadinessUpstreamDown(t *testing.T) {
	router := setup(map[string]Check{
		"reasoning": func(ctx context.Context) error { return nil },
		"vision":    func(ctx context.Context) error { return fmt.Errorf("connection refused") },
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"vision":"DOWN"`)
	assert.Contains(t, w.Body.String(), `"reasoning":"UP"`)
}

func TestReadinessProbesAreCached(t *testing.T) {
	var calls atomic.Int32
	router := setup(map[string]Check{
		"store": func(ctx context.Context) error {
			calls.Add(1)
			return nil
		},
	})

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, int32(1), calls.Load())
}
