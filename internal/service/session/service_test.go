package session

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbnow/screening-api/internal/client/recordstore"
	"github.com/tbnow/screening-api/internal/model"
	"github.com/tbnow/screening-api/pkg/errors"
	"github.com/tbnow/screening-api/pkg/logger"
)

type fakeReasoning struct {
	answer string
	err    error

	mu       sync.Mutex
	queries  []model.ClinicalQuery
	blockCh  chan struct{}
	blocking bool
}

func (f *fakeReasoning) SubmitQuery(ctx context.Context, query model.ClinicalQuery) (*model.ReasoningResponse, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.blocking {
		<-f.blockCh
	}
	if f.err != nil {
		return nil, f.err
	}
	return &model.ReasoningResponse{Answer: f.answer}, nil
}

type fakeVision struct {
	result *model.XrayResult
	err    error
}

func (f *fakeVision) AnalyzeImage(ctx context.Context, filename string, image io.Reader) (*model.XrayResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeStore struct {
	mu         sync.Mutex
	created    []model.PatientRecord
	appended   []string
	createErr  error
	appendErr  error
	appendDone chan struct{}
}

func (f *fakeStore) CreateRecord(ctx context.Context, in model.PatientIntake, result string, xray *model.XrayResult) (*model.PatientRecord, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	record := model.PatientRecord{
		ID:          fmt.Sprintf("rec-%d", len(f.created)+1),
		PatientInfo: in,
		Result:      result,
		XrayResult:  xray,
		Status:      model.StatusPending,
	}
	f.mu.Lock()
	f.created = append(f.created, record)
	f.mu.Unlock()
	return &record, nil
}

func (f *fakeStore) AppendChat(ctx context.Context, recordID, question string) (*recordstore.ChatAppendResult, error) {
	f.mu.Lock()
	f.appended = append(f.appended, recordID+":"+question)
	f.mu.Unlock()
	if f.appendDone != nil {
		defer close(f.appendDone)
	}
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	return &recordstore.ChatAppendResult{}, nil
}

func (f *fakeStore) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func newTestService(r *fakeReasoning, v *fakeVision, st *fakeStore) *Service {
	return NewService(r, v, st, nil, logger.NewLogger(nil), nil)
}

func TestSubmitQuickSuccess(t *testing.T) {
	reasoning := &fakeReasoning{answer: "Gejala TB meliputi batuk lama."}
	svc := newTestService(reasoning, &fakeVision{}, &fakeStore{})

	outcome, err := svc.SubmitQuick(context.Background(), "s1", "Apa gejala TB?", "")
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, outcome.State)
	assert.Equal(t, model.TagSuccess, outcome.Tag)
	assert.Equal(t, "Gejala TB meliputi batuk lama.", outcome.Answer)
	// The finished interaction reads as Idle, ready for the next submit.
	assert.Equal(t, StateIdle, svc.SessionState("s1"))

	require.Len(t, reasoning.queries, 1)
	assert.Equal(t, model.QueryModeQuick, reasoning.queries[0].Mode)
}

func TestSubmitQuickEmptyQuestion(t *testing.T) {
	svc := newTestService(&fakeReasoning{}, &fakeVision{}, &fakeStore{})

	_, err := svc.SubmitQuick(context.Background(), "s1", "   ", "")
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrBadRequest, appErr.Code)
	// Validation failed before the interaction ever left Idle.
	assert.Equal(t, StateIdle, svc.SessionState("s1"))
}

func TestSubmitQuickRateLimitedIsDegraded(t *testing.T) {
	answer := "⚠️ **Batas permintaan tercapai**\n\nCoba lagi dalam beberapa menit."
	store := &fakeStore{}
	svc := newTestService(&fakeReasoning{answer: answer}, &fakeVision{}, store)

	outcome, err := svc.SubmitQuick(context.Background(), "s1", "Apa gejala TB?", "rec-1")
	require.NoError(t, err)

	assert.Equal(t, StateDegraded, outcome.State)
	assert.Equal(t, model.TagRateLimited, outcome.Tag)
	// The literal service reply is surfaced, not a generic message.
	assert.Equal(t, answer, outcome.Answer)

	// A degraded exchange is never persisted to the chat thread.
	time.Sleep(50 * time.Millisecond)
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.appended)
}

func TestSubmitQuickSystemErrorIsFailed(t *testing.T) {
	answer := "⚠️ **Kesalahan sistem**\n\nTim kami sedang menangani."
	svc := newTestService(&fakeReasoning{answer: answer}, &fakeVision{}, &fakeStore{})

	outcome, err := svc.SubmitQuick(context.Background(), "s1", "q", "")
	require.NoError(t, err)

	assert.Equal(t, StateFailed, outcome.State)
	assert.Equal(t, model.TagSystemError, outcome.Tag)
	assert.Equal(t, answer, outcome.Answer)
}

func TestSubmitQuickTransportFailure(t *testing.T) {
	svc := newTestService(&fakeReasoning{err: errors.NewUnavailable("reasoning service", nil)}, &fakeVision{}, &fakeStore{})

	outcome, err := svc.SubmitQuick(context.Background(), "s1", "q", "")
	require.NoError(t, err)

	assert.Equal(t, StateFailed, outcome.State)
	assert.Empty(t, string(outcome.Tag))
	assert.Equal(t, MsgReasoningFailure, outcome.Answer)
	assert.Equal(t, StateIdle, svc.SessionState("s1"))
}

func TestSubmitQuickPersistsChatBestEffort(t *testing.T) {
	store := &fakeStore{appendDone: make(chan struct{})}
	svc := newTestService(&fakeReasoning{answer: "ok"}, &fakeVision{}, store)

	_, err := svc.SubmitQuick(context.Background(), "s1", "Apakah TB menular?", "rec-9")
	require.NoError(t, err)

	select {
	case <-store.appendDone:
	case <-time.After(2 * time.Second):
		t.Fatal("chat append never ran")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.appended, 1)
	assert.Equal(t, "rec-9:Apakah TB menular?", store.appended[0])
}

func TestSubmitQuickChatFailureNotSurfaced(t *testing.T) {
	store := &fakeStore{
		appendErr:  errors.NewUnavailable("record store", nil),
		appendDone: make(chan struct{}),
	}
	svc := newTestService(&fakeReasoning{answer: "ok"}, &fakeVision{}, store)

	outcome, err := svc.SubmitQuick(context.Background(), "s1", "q", "rec-1")
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, outcome.State)

	select {
	case <-store.appendDone:
	case <-time.After(2 * time.Second):
		t.Fatal("chat append never ran")
	}
}

func TestDuplicateSubmissionRejected(t *testing.T) {
	reasoning := &fakeReasoning{
		answer:   "ok",
		blocking: true,
		blockCh:  make(chan struct{}),
	}
	svc := newTestService(reasoning, &fakeVision{}, &fakeStore{})

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, err := svc.SubmitQuick(context.Background(), "s1", "first", "")
		assert.NoError(t, err)
	}()

	// Wait until the first submission is in flight.
	require.Eventually(t, func() bool {
		return svc.SessionState("s1") == StateSubmitting
	}, 2*time.Second, 5*time.Millisecond)

	_, err := svc.SubmitQuick(context.Background(), "s1", "second", "")
	require.Error(t, err)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrConflict, appErr.Code)

	// Release the in-flight call; the interaction frees up again.
	close(reasoning.blockCh)
	<-firstDone
	assert.Equal(t, StateIdle, svc.SessionState("s1"))
}

func TestResubmitAfterTerminalStateAllowed(t *testing.T) {
	svc := newTestService(&fakeReasoning{err: errors.NewUnavailable("reasoning service", nil)}, &fakeVision{}, &fakeStore{})

	outcome, err := svc.SubmitQuick(context.Background(), "s1", "q", "")
	require.NoError(t, err)
	require.Equal(t, StateFailed, outcome.State)

	// Terminal states accept a fresh explicit submission.
	_, err = svc.SubmitQuick(context.Background(), "s1", "q again", "")
	require.NoError(t, err)
}

func TestFinishedInteractionsAreReleased(t *testing.T) {
	svc := newTestService(&fakeReasoning{answer: "ok"}, &fakeVision{}, &fakeStore{})

	// Every request without an X-Session-ID header gets a fresh session
	// id, so tracked state must not accumulate across interactions.
	for i := 0; i < 500; i++ {
		_, err := svc.SubmitQuick(context.Background(), fmt.Sprintf("s-%d", i), "q", "")
		require.NoError(t, err)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Empty(t, svc.states)
}

func TestSubmitDiagnosisPersistsOnSuccess(t *testing.T) {
	reasoning := &fakeReasoning{answer: "Risiko TB tinggi, rujuk untuk pemeriksaan dahak."}
	store := &fakeStore{}
	svc := newTestService(reasoning, &fakeVision{}, store)

	in := model.PatientIntake{Name: "Budi", Age: 40, Symptoms: "batuk 3 minggu"}
	outcome, err := svc.SubmitDiagnosis(context.Background(), "s1", in)
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, outcome.State)
	assert.False(t, outcome.SaveFailed)
	require.NotNil(t, outcome.Record)
	assert.Equal(t, "Budi", outcome.Record.PatientInfo.Name)
	assert.Equal(t, reasoning.answer, outcome.Record.Result)
	assert.Equal(t, model.StatusPending, outcome.Record.Status)

	require.Len(t, reasoning.queries, 1)
	assert.Equal(t, model.QueryModeDiagnosis, reasoning.queries[0].Mode)
	assert.Contains(t, reasoning.queries[0].Text, "INFORMASI PASIEN:")
}

func TestSubmitDiagnosisDegradedSkipsPersistence(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(&fakeReasoning{answer: "⚠️ **Layanan AI sementara tidak tersedia**"}, &fakeVision{}, store)

	outcome, err := svc.SubmitDiagnosis(context.Background(), "s1", model.PatientIntake{Name: "Budi"})
	require.NoError(t, err)

	assert.Equal(t, StateDegraded, outcome.State)
	assert.Nil(t, outcome.Record)
	assert.False(t, outcome.SaveFailed)
	assert.Zero(t, store.createdCount())
}

func TestSubmitDiagnosisSaveFailureSurfaced(t *testing.T) {
	store := &fakeStore{createErr: errors.NewUnavailable("record store", nil)}
	svc := newTestService(&fakeReasoning{answer: "Risiko sedang."}, &fakeVision{}, store)

	outcome, err := svc.SubmitDiagnosis(context.Background(), "s1", model.PatientIntake{Name: "Budi"})
	require.NoError(t, err)

	// The answer survives; only the save is reported failed.
	assert.Equal(t, StateSucceeded, outcome.State)
	assert.Equal(t, "Risiko sedang.", outcome.Answer)
	assert.True(t, outcome.SaveFailed)
	assert.Nil(t, outcome.Record)
}

func TestAnalyzeXray(t *testing.T) {
	vision := &fakeVision{result: &model.XrayResult{RiskLevel: "Tinggi", Confidence: 0.87}}
	svc := newTestService(&fakeReasoning{}, vision, &fakeStore{})

	outcome, err := svc.AnalyzeXray(context.Background(), "s1", "chest.png", strings.NewReader("img"))
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, outcome.State)
	assert.Equal(t, "Risiko TB: Tinggi\nTingkat Kepercayaan: 87.0%", outcome.Summary)
	assert.Empty(t, outcome.Message)
}

func TestAnalyzeXrayFailure(t *testing.T) {
	vision := &fakeVision{err: errors.NewUnavailable("vision service", nil)}
	svc := newTestService(&fakeReasoning{}, vision, &fakeStore{})

	outcome, err := svc.AnalyzeXray(context.Background(), "s1", "chest.png", strings.NewReader("img"))
	require.NoError(t, err)

	assert.Equal(t, StateFailed, outcome.State)
	assert.Nil(t, outcome.Result)
	assert.Equal(t, MsgXrayFailure, outcome.Message)
	assert.Equal(t, StateIdle, svc.SessionState("s1"))
}

func TestSaveXrayRecord(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(&fakeReasoning{}, &fakeVision{}, store)

	xray := &model.XrayResult{RiskLevel: "Sedang", Confidence: 0.55}
	record, err := svc.SaveXrayRecord(context.Background(), model.PatientIntake{Name: "Siti"}, xray)
	require.NoError(t, err)

	assert.Equal(t, "Analisis X-ray: Risiko TB: Sedang\nTingkat Kepercayaan: 55.0%", record.Result)
	require.NotNil(t, record.XrayResult)
	assert.Equal(t, "Sedang", record.XrayResult.RiskLevel)
}

func TestSaveXrayRecordWithoutResult(t *testing.T) {
	svc := newTestService(&fakeReasoning{}, &fakeVision{}, &fakeStore{})

	_, err := svc.SaveXrayRecord(context.Background(), model.PatientIntake{}, nil)
	require.Error(t, err)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrBadRequest, appErr.Code)
}
