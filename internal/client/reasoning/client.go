// Package reasoning is the HTTP client for the retrieval-augmented
// reasoning service. The service answers clinical questions and encodes
// degraded conditions inside the answer text itself; this client only
// moves bytes, classification happens elsewhere.
package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/tbnow/screening-api/internal/model"
	"github.com/tbnow/screening-api/pkg/circuitbreaker"
	"github.com/tbnow/screening-api/pkg/errors"
	"github.com/tbnow/screening-api/pkg/logger"
)

const queryPath = "/rag/query"

type Config struct {
	BaseURL string
	// Timeout bounds every call. The upstream contract documents no
	// timeout; this is a hardening addition.
	Timeout time.Duration
	// Client-side rate limit, so one busy session cannot trip the
	// upstream's own request cap.
	RPS   float64
	Burst int
}

type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	cb      *circuitbreaker.CircuitBreaker
	logger  *logger.Logger
}

type queryRequest struct {
	Question  string `json:"question"`
	QueryType string `json:"query_type"`
}

func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "reasoning",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
		logger: log.WithComponent("reasoning-client"),
	}
}

// SubmitQuery sends the clinical query and returns the raw answer. Any
// transport or decode failure maps to a single unavailable error kind:
// no answer text exists to show in that case.
func (c *Client) SubmitQuery(ctx context.Context, query model.ClinicalQuery) (*model.ReasoningResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.NewUnavailable("reasoning service", err)
	}

	body, err := json.Marshal(queryRequest{
		Question:  query.Text,
		QueryType: string(query.Mode),
	})
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	var resp model.ReasoningResponse
	err = c.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+queryPath, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		res, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		if res.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", res.StatusCode)
		}
		return json.NewDecoder(res.Body).Decode(&resp)
	})
	if err != nil {
		c.logger.Error(err, "reasoning query failed", "mode", string(query.Mode))
		return nil, errors.NewUnavailable("reasoning service", err)
	}
	return &resp, nil
}

// BreakerState exposes the circuit state for readiness reporting.
func (c *Client) BreakerState() string {
	return c.cb.State()
}
