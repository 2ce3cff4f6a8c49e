// Package recordstore is the REST client for the patient record store.
// Every operation either returns a complete server-owned record, a
// not-found error for a missing record, or a single unavailable error
// kind; partial record state never escapes.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tbnow/screening-api/internal/model"
	"github.com/tbnow/screening-api/pkg/errors"
	"github.com/tbnow/screening-api/pkg/logger"
	"github.com/tbnow/screening-api/pkg/metrics"
)

const recordsPath = "/records"

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// ChatAppendResult carries both the new turn and the full updated record
// so the caller can replace its local copy wholesale.
type ChatAppendResult struct {
	Chat   model.ChatTurn      `json:"chat"`
	Record model.PatientRecord `json:"record"`
}

type createRequest struct {
	PatientInfo model.PatientIntake `json:"patient_info"`
	Result      string              `json:"result"`
	XrayResult  *model.XrayResult   `json:"xray_result,omitempty"`
}

type appendChatRequest struct {
	Question string `json:"question"`
	Mode     string `json:"mode"`
}

type updateRequest struct {
	Status model.RecordStatus `json:"status"`
	Notes  string             `json:"notes,omitempty"`
}

func NewClient(cfg Config, log *logger.Logger, m *metrics.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  log.WithComponent("recordstore-client"),
		metrics: m,
	}
}

// CreateRecord persists a new record and returns it with the assigned id.
// Not idempotent-safe on retry; callers retry only on explicit user action.
func (c *Client) CreateRecord(ctx context.Context, intake model.PatientIntake, result string, xray *model.XrayResult) (*model.PatientRecord, error) {
	var record model.PatientRecord
	err := c.do(ctx, "create", http.MethodPost, recordsPath, createRequest{
		PatientInfo: intake,
		Result:      result,
		XrayResult:  xray,
	}, &record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRecords fetches a fresh snapshot of records matching the filter.
// No caching: the in-memory list a UI holds is only ever replaced by
// what the store returns.
func (c *Client) ListRecords(ctx context.Context, filter model.RecordFilter) ([]model.PatientRecord, error) {
	path := recordsPath
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.SearchText != "" {
		q.Set("search", filter.SearchText)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var records []model.PatientRecord
	if err := c.do(ctx, "list", http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetRecord fetches one record by id.
func (c *Client) GetRecord(ctx context.Context, recordID string) (*model.PatientRecord, error) {
	var record model.PatientRecord
	if err := c.do(ctx, "get", http.MethodGet, recordsPath+"/"+url.PathEscape(recordID), nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// AppendChat submits a follow-up question for a record. The store runs
// the question through the reasoning service under quick mode, appends
// the resulting turn, and returns both the turn and the updated record.
func (c *Client) AppendChat(ctx context.Context, recordID, question string) (*ChatAppendResult, error) {
	var result ChatAppendResult
	err := c.do(ctx, "append_chat", http.MethodPost,
		recordsPath+"/"+url.PathEscape(recordID)+"/chat",
		appendChatRequest{Question: question, Mode: string(model.QueryModeQuick)},
		&result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateStatus sets a record's status. Membership in the enum is the
// only client-side check; the store decides transition legality.
func (c *Client) UpdateStatus(ctx context.Context, recordID string, status model.RecordStatus, notes string) (*model.PatientRecord, error) {
	if !status.IsValid() {
		return nil, errors.NewBadRequest(fmt.Sprintf("invalid status %q", status), nil)
	}
	var record model.PatientRecord
	err := c.do(ctx, "update_status", http.MethodPut,
		recordsPath+"/"+url.PathEscape(recordID),
		updateRequest{Status: status, Notes: notes},
		&record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, body, out interface{}) error {
	start := time.Now()
	err := c.doOnce(ctx, method, path, body, out)
	if c.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		c.metrics.StoreOperations.WithLabelValues(operation, status).Inc()
		c.metrics.StoreLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		c.logger.Error(err, "record store call failed", "operation", operation)
		if errors.IsNotFound(err) {
			return err
		}
		return errors.NewUnavailable("record store", err)
	}
	return nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return errors.NewNotFound("record", nil)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", res.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
