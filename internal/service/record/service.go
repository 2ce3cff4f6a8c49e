// Package record manages persisted screening records: listing, follow-up
// chat, and status updates. All state lives in the record store; this
// service never caches, so a local record copy is only ever replaced
// wholesale by what the store returns.
package record

import (
	"context"
	"strings"
	"time"

	"github.com/tbnow/screening-api/internal/client/recordstore"
	"github.com/tbnow/screening-api/internal/model"
	"github.com/tbnow/screening-api/pkg/errors"
	"github.com/tbnow/screening-api/pkg/logger"
	"github.com/tbnow/screening-api/pkg/messaging"
)

const EventStatusUpdated = "record.status_updated"

// Store is the record store boundary used by this service.
type Store interface {
	ListRecords(ctx context.Context, filter model.RecordFilter) ([]model.PatientRecord, error)
	GetRecord(ctx context.Context, recordID string) (*model.PatientRecord, error)
	AppendChat(ctx context.Context, recordID, question string) (*recordstore.ChatAppendResult, error)
	UpdateStatus(ctx context.Context, recordID string, status model.RecordStatus, notes string) (*model.PatientRecord, error)
}

type Service struct {
	store  Store
	broker messaging.Broker
	logger *logger.Logger
}

func NewService(store Store, broker messaging.Broker, log *logger.Logger) *Service {
	if broker == nil {
		broker = messaging.NoopBroker{}
	}
	return &Service{
		store:  store,
		broker: broker,
		logger: log.WithComponent("record"),
	}
}

// List fetches a fresh snapshot of records matching the filter. The
// search match against patient id and name is applied here as well, so
// the contract holds regardless of how much filtering the store does.
func (s *Service) List(ctx context.Context, filter model.RecordFilter) ([]model.PatientRecord, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, errors.NewBadRequest("invalid status filter", nil)
	}

	records, err := s.store.ListRecords(ctx, filter)
	if err != nil {
		return nil, err
	}

	filtered := make([]model.PatientRecord, 0, len(records))
	for _, r := range records {
		if matches(r, filter) {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// Get fetches one record.
func (s *Service) Get(ctx context.Context, recordID string) (*model.PatientRecord, error) {
	if recordID == "" {
		return nil, errors.NewBadRequest("record id is required", nil)
	}
	return s.store.GetRecord(ctx, recordID)
}

// AppendChat submits a follow-up question for a record and returns the
// new turn together with the full updated record. Awaited: the caller
// handles the failure.
func (s *Service) AppendChat(ctx context.Context, recordID, question string) (*recordstore.ChatAppendResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.NewBadRequest("question is required", nil)
	}
	return s.store.AppendChat(ctx, recordID, question)
}

// UpdateStatus sets a record's status. Any of the five enum values is
// submitted as-is; the store decides whether the transition is legal.
func (s *Service) UpdateStatus(ctx context.Context, recordID string, status model.RecordStatus, notes string) (*model.PatientRecord, error) {
	if !status.IsValid() {
		return nil, errors.NewBadRequest("invalid status", nil)
	}

	record, err := s.store.UpdateStatus(ctx, recordID, status, notes)
	if err != nil {
		return nil, err
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.broker.Publish(ctx, EventStatusUpdated, record); err != nil {
			s.logger.Warn("event publish failed", "channel", EventStatusUpdated, "error", err.Error())
		}
	}()

	return record, nil
}

// Summary counts records per status for the records overview.
func (s *Service) Summary(ctx context.Context) (map[model.RecordStatus]int, error) {
	records, err := s.store.ListRecords(ctx, model.RecordFilter{})
	if err != nil {
		return nil, err
	}
	counts := make(map[model.RecordStatus]int, len(model.RecordStatuses))
	for _, r := range records {
		counts[r.Status]++
	}
	return counts, nil
}

func matches(r model.PatientRecord, filter model.RecordFilter) bool {
	if filter.Status != "" && r.Status != filter.Status {
		return false
	}
	if filter.SearchText == "" {
		return true
	}
	needle := strings.ToLower(filter.SearchText)
	return strings.Contains(strings.ToLower(r.PatientID), needle) ||
		strings.Contains(strings.ToLower(r.PatientInfo.Name), needle)
}
