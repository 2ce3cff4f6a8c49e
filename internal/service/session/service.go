// Package session orchestrates one clinical interaction: build the query,
// submit it, classify the reply, and decide whether anything is persisted.
package session

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tbnow/screening-api/internal/classifier"
	"github.com/tbnow/screening-api/internal/client/recordstore"
	"github.com/tbnow/screening-api/internal/intake"
	"github.com/tbnow/screening-api/internal/model"
	"github.com/tbnow/screening-api/pkg/errors"
	"github.com/tbnow/screening-api/pkg/logger"
	"github.com/tbnow/screening-api/pkg/messaging"
	"github.com/tbnow/screening-api/pkg/metrics"
)

// State of one clinical interaction. Only in-flight interactions are
// tracked; once a submission reaches a terminal state its entry is
// released and the interaction reads as Idle again, ready for the next
// explicit submit. There is no automatic retry.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateDegraded   State = "degraded"
	StateFailed     State = "failed"
)

// Messages surfaced when no answer text exists to show.
const (
	MsgReasoningFailure = "Error: Unable to connect to AI service. Please try again later."
	MsgXrayFailure      = "Error analyzing image. Please try again."
)

const (
	EventRecordCreated = "record.created"

	// Budget for best-effort persistence running after the originating
	// request has already been answered.
	backgroundSaveTimeout = 15 * time.Second
)

// ReasoningClient is the reasoning service boundary.
type ReasoningClient interface {
	SubmitQuery(ctx context.Context, query model.ClinicalQuery) (*model.ReasoningResponse, error)
}

// VisionClient is the X-ray analysis boundary.
type VisionClient interface {
	AnalyzeImage(ctx context.Context, filename string, image io.Reader) (*model.XrayResult, error)
}

// RecordStore is the subset of the record store used by the orchestrator.
type RecordStore interface {
	CreateRecord(ctx context.Context, in model.PatientIntake, result string, xray *model.XrayResult) (*model.PatientRecord, error)
	AppendChat(ctx context.Context, recordID, question string) (*recordstore.ChatAppendResult, error)
}

// Outcome is what one submission produced. Answer carries either the
// literal service reply or, when no reply exists, a generic failure
// message; Tag is empty in that case.
type Outcome struct {
	State  State             `json:"state"`
	Tag    model.ResponseTag `json:"tag,omitempty"`
	Answer string            `json:"answer"`
}

// DiagnosisOutcome extends Outcome with the persistence result of a full
// diagnosis. Record is nil unless the save succeeded; SaveFailed marks an
// explicit save that failed while the displayed answer stays intact.
type DiagnosisOutcome struct {
	Outcome
	Record     *model.PatientRecord `json:"record,omitempty"`
	SaveFailed bool                 `json:"save_failed,omitempty"`
}

// XrayOutcome is the result of one image analysis.
type XrayOutcome struct {
	State   State             `json:"state"`
	Result  *model.XrayResult `json:"result,omitempty"`
	Summary string            `json:"summary,omitempty"`
	Message string            `json:"message,omitempty"`
}

type Service struct {
	reasoning ReasoningClient
	vision    VisionClient
	store     RecordStore
	broker    messaging.Broker
	logger    *logger.Logger
	metrics   *metrics.Metrics

	mu     sync.Mutex
	states map[string]State
}

func NewService(reasoning ReasoningClient, vision VisionClient, store RecordStore, broker messaging.Broker, log *logger.Logger, m *metrics.Metrics) *Service {
	if broker == nil {
		broker = messaging.NoopBroker{}
	}
	return &Service{
		reasoning: reasoning,
		vision:    vision,
		store:     store,
		broker:    broker,
		logger:    log.WithComponent("session"),
		metrics:   m,
		states:    make(map[string]State),
	}
}

// SubmitQuick answers a free-text question. When recordID is set, the
// exchange is additionally persisted to that record's chat thread as a
// best-effort side effect: failures are logged, never surfaced.
func (s *Service) SubmitQuick(ctx context.Context, sessionID, question, recordID string) (*Outcome, error) {
	query, err := intake.QuickQuery(question)
	if err != nil {
		return nil, err
	}
	if err := s.begin(sessionID); err != nil {
		return nil, err
	}

	outcome := s.submit(ctx, sessionID, query)
	if outcome.State == StateSucceeded && recordID != "" {
		go s.appendChatAsync(recordID, query.Text)
	}
	return outcome, nil
}

// SubmitDiagnosis assembles the full patient document, submits it, and on
// a successful classification persists a new record. The save is awaited:
// its failure is reported to the caller while the answer stays intact.
func (s *Service) SubmitDiagnosis(ctx context.Context, sessionID string, in model.PatientIntake) (*DiagnosisOutcome, error) {
	if err := s.begin(sessionID); err != nil {
		return nil, err
	}

	query := intake.DiagnosisQuery(in)
	outcome := s.submit(ctx, sessionID, query)
	result := &DiagnosisOutcome{Outcome: *outcome}
	if outcome.State != StateSucceeded {
		return result, nil
	}

	record, err := s.store.CreateRecord(ctx, in, outcome.Answer, nil)
	if err != nil {
		s.logger.Error(err, "diagnosis record save failed", "session", sessionID)
		result.SaveFailed = true
		return result, nil
	}
	result.Record = record
	s.publish(EventRecordCreated, record)
	return result, nil
}

// AnalyzeXray runs one image through the vision service.
func (s *Service) AnalyzeXray(ctx context.Context, sessionID, filename string, image io.Reader) (*XrayOutcome, error) {
	if image == nil {
		return nil, errors.NewBadRequest("image file is required", nil)
	}
	if err := s.begin(sessionID); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.vision.AnalyzeImage(ctx, filename, image)
	if s.metrics != nil {
		s.metrics.VisionLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		s.finish(sessionID, StateFailed)
		s.countVision("error")
		return &XrayOutcome{State: StateFailed, Message: MsgXrayFailure}, nil
	}

	s.finish(sessionID, StateSucceeded)
	s.countVision("ok")
	return &XrayOutcome{
		State:   StateSucceeded,
		Result:  result,
		Summary: XraySummary(result),
	}, nil
}

// SaveXrayRecord persists an analysis the user explicitly asked to keep.
// Awaited: the caller surfaces the failure.
func (s *Service) SaveXrayRecord(ctx context.Context, in model.PatientIntake, xray *model.XrayResult) (*model.PatientRecord, error) {
	if xray == nil {
		return nil, errors.NewBadRequest("no analysis result to save", nil)
	}
	record, err := s.store.CreateRecord(ctx, in, "Analisis X-ray: "+XraySummary(xray), xray)
	if err != nil {
		return nil, err
	}
	s.publish(EventRecordCreated, record)
	return record, nil
}

// SessionState reports the current state of an interaction. Unknown and
// finished interactions read as Idle.
func (s *Service) SessionState(sessionID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[sessionID]; ok {
		return st
	}
	return StateIdle
}

// XraySummary renders the result text shown for an analysis.
func XraySummary(r *model.XrayResult) string {
	return fmt.Sprintf("Risiko TB: %s\nTingkat Kepercayaan: %.1f%%", r.RiskLevel, r.Confidence*100)
}

// submit performs the reasoning round-trip and classification shared by
// quick and diagnosis submissions. The session must be in Submitting.
func (s *Service) submit(ctx context.Context, sessionID string, query model.ClinicalQuery) *Outcome {
	start := time.Now()
	resp, err := s.reasoning.SubmitQuery(ctx, query)
	if s.metrics != nil {
		s.metrics.ReasoningLatency.WithLabelValues(string(query.Mode)).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		s.finish(sessionID, StateFailed)
		s.countReasoning(query.Mode, "transport_failure")
		return &Outcome{State: StateFailed, Answer: MsgReasoningFailure}
	}

	classified := classifier.Classify(resp.Answer)
	s.countReasoning(query.Mode, string(classified.Tag))

	var state State
	switch {
	case classified.Tag == model.TagSuccess:
		state = StateSucceeded
	case classified.Tag.Degraded():
		state = StateDegraded
		if s.metrics != nil {
			s.metrics.DegradedResponses.WithLabelValues(string(classified.Tag)).Inc()
		}
	default: // system error: fatal to the attempt, but the answer exists
		state = StateFailed
	}
	s.finish(sessionID, state)

	return &Outcome{
		State:  state,
		Tag:    classified.Tag,
		Answer: classified.Answer,
	}
}

// begin moves an interaction into Submitting. A session already in
// Submitting is rejected: no concurrent duplicate submissions.
func (s *Service) begin(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.states[sessionID] == StateSubmitting {
		if s.metrics != nil {
			s.metrics.RejectedResubmits.Inc()
		}
		return errors.NewConflict("submission already in progress", nil)
	}
	s.states[sessionID] = StateSubmitting
	if s.metrics != nil {
		s.metrics.SessionsActive.Inc()
	}
	return nil
}

// finish releases the interaction's entry. Keeping terminal states in
// the map would grow it by one entry per screening request forever, and
// nothing reads them: the Outcome carries the terminal state and begin
// only ever rejects Submitting.
func (s *Service) finish(sessionID string, state State) {
	s.mu.Lock()
	delete(s.states, sessionID)
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.SessionsActive.Dec()
		s.metrics.SessionOutcomes.WithLabelValues(string(state)).Inc()
	}
}

// appendChatAsync persists a quick exchange to a record's chat thread
// after the response has already been delivered. The originating request
// context is gone by now.
func (s *Service) appendChatAsync(recordID, question string) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundSaveTimeout)
	defer cancel()
	if _, err := s.store.AppendChat(ctx, recordID, question); err != nil {
		s.logger.Error(err, "best-effort chat save failed", "record_id", recordID)
	}
}

func (s *Service) publish(channel string, payload interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.broker.Publish(ctx, channel, payload); err != nil {
		s.logger.Warn("event publish failed", "channel", channel, "error", err.Error())
	}
}

func (s *Service) countReasoning(mode model.QueryMode, tag string) {
	if s.metrics != nil {
		s.metrics.ReasoningRequests.WithLabelValues(string(mode), tag).Inc()
	}
}

func (s *Service) countVision(status string) {
	if s.metrics != nil {
		s.metrics.VisionRequests.WithLabelValues(status).Inc()
	}
}
