// Package vision is the HTTP client for the X-ray classification service.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tbnow/screening-api/internal/model"
	"github.com/tbnow/screening-api/pkg/circuitbreaker"
	"github.com/tbnow/screening-api/pkg/errors"
	"github.com/tbnow/screening-api/pkg/logger"
)

const analyzePath = "/xray/analyze"

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
	cb      *circuitbreaker.CircuitBreaker
	logger  *logger.Logger
}

func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "vision",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
		logger: log.WithComponent("vision-client"),
	}
}

// AnalyzeImage uploads one image and returns the vision verdict. The
// heatmap reference comes back as a path relative to the service; it is
// resolved to an absolute locator here and treated as opaque after that.
func (c *Client) AnalyzeImage(ctx context.Context, filename string, image io.Reader) (*model.XrayResult, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := w.Close(); err != nil {
		return nil, errors.NewInternal(err)
	}

	var result model.XrayResult
	err = c.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, bytes.NewReader(body.Bytes()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())

		res, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		if res.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", res.StatusCode)
		}
		return json.NewDecoder(res.Body).Decode(&result)
	})
	if err != nil {
		c.logger.Error(err, "xray analysis failed", "file", filename)
		return nil, errors.NewUnavailable("vision service", err)
	}

	if result.Confidence < 0 || result.Confidence > 1 {
		return nil, errors.NewUnavailable("vision service",
			fmt.Errorf("confidence %v out of range", result.Confidence))
	}
	result.HeatmapURL = c.resolveHeatmap(result.HeatmapURL)
	return &result, nil
}

func (c *Client) resolveHeatmap(ref string) string {
	if ref == "" {
		return ""
	}
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref
	}
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(ref, "/")
}

// BreakerState exposes the circuit state for readiness reporting.
func (c *Client) BreakerState() string {
	return c.cb.State()
}
