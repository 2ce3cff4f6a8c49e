// Package health reports liveness and upstream readiness. Probe results
// are cached briefly so readiness polling does not hammer the upstreams.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// Check probes one upstream dependency.
type Check func(ctx context.Context) error

type Handler struct {
	checks map[string]Check
	cache  *cache.Cache
}

func NewHandler(checks map[string]Check) *Handler {
	return &Handler{
		checks: checks,
		cache:  cache.New(15*time.Second, time.Minute),
	}
}

// HTTPCheck probes a base URL with a short GET.
func HTTPCheck(url string) Check {
	client := &http.Client{Timeout: 3 * time.Second}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		res, err := client.Do(req)
		if err != nil {
			return err
		}
		res.Body.Close()
		return nil
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	status := http.StatusOK
	results := make(gin.H, len(h.checks))
	for name, check := range h.checks {
		if err := h.cachedCheck(c.Request.Context(), name, check); err != nil {
			results[name] = "DOWN"
			status = http.StatusServiceUnavailable
		} else {
			results[name] = "UP"
		}
	}
	c.JSON(status, gin.H{"status": statusText(status), "upstreams": results})
}

func (h *Handler) cachedCheck(ctx context.Context, name string, check Check) error {
	if cached, ok := h.cache.Get(name); ok {
		if err, failed := cached.(error); failed {
			return err
		}
		return nil
	}

	err := check(ctx)
	if err != nil {
		h.cache.Set(name, err, cache.DefaultExpiration)
	} else {
		h.cache.Set(name, true, cache.DefaultExpiration)
	}
	return err
}

func statusText(status int) string {
	if status == http.StatusOK {
		return "UP"
	}
	return "DOWN"
}
