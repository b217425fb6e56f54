package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/crew-shifts-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crew-shifts-backend/internal/http/middleware"
	"github.com/ignatzorin/crew-shifts-backend/internal/models"
	"github.com/ignatzorin/crew-shifts-backend/internal/service"
)

type mockShiftWorkflow struct {
	mock.Mock
}

func (m *mockShiftWorkflow) CreateShift(ctx context.Context, caller service.Caller, in service.CreateShiftInput) (*models.Shift, error) {
	args := m.Called(ctx, caller, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shift), args.Error(1)
}

func (m *mockShiftWorkflow) GetShiftDetails(ctx context.Context, caller service.Caller, shiftID uuid.UUID) (*models.ShiftDetails, error) {
	args := m.Called(ctx, caller, shiftID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ShiftDetails), args.Error(1)
}

func (m *mockShiftWorkflow) ApplyToShift(ctx context.Context, caller service.Caller, shiftID uuid.UUID, message *string) (*models.Application, error) {
	args := m.Called(ctx, caller, shiftID, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *mockShiftWorkflow) ApproveApplication(ctx context.Context, caller service.Caller, shiftID, workerID uuid.UUID) (*service.TransitionResult, error) {
	return m.transition(m.Called(ctx, caller, shiftID, workerID))
}

func (m *mockShiftWorkflow) MarkOnWay(ctx context.Context, caller service.Caller, assignmentID uuid.UUID) (*service.TransitionResult, error) {
	return m.transition(m.Called(ctx, caller, assignmentID))
}

func (m *mockShiftWorkflow) CheckIn(ctx context.Context, caller service.Caller, assignmentID uuid.UUID, evidence models.CheckInEvidence) (*service.TransitionResult, error) {
	return m.transition(m.Called(ctx, caller, assignmentID, evidence))
}

func (m *mockShiftWorkflow) CheckOut(ctx context.Context, caller service.Caller, assignmentID uuid.UUID) (*service.TransitionResult, error) {
	return m.transition(m.Called(ctx, caller, assignmentID))
}

func (m *mockShiftWorkflow) CompleteShift(ctx context.Context, caller service.Caller, shiftID uuid.UUID) (*service.TransitionResult, error) {
	return m.transition(m.Called(ctx, caller, shiftID))
}

func (m *mockShiftWorkflow) ConfirmCompletion(ctx context.Context, caller service.Caller, assignmentID uuid.UUID) (*service.TransitionResult, error) {
	return m.transition(m.Called(ctx, caller, assignmentID))
}

func (m *mockShiftWorkflow) FinalizeShift(ctx context.Context, caller service.Caller, shiftID uuid.UUID, force bool) (*service.TransitionResult, error) {
	return m.transition(m.Called(ctx, caller, shiftID, force))
}

func (m *mockShiftWorkflow) CancelShift(ctx context.Context, caller service.Caller, shiftID uuid.UUID, reason *string) (*service.TransitionResult, error) {
	return m.transition(m.Called(ctx, caller, shiftID, reason))
}

func (m *mockShiftWorkflow) transition(args mock.Arguments) (*service.TransitionResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TransitionResult), args.Error(1)
}

// asCaller подставляет пользователя в контекст, как это делает AuthMiddleware.
func asCaller(caller service.Caller) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, caller.ID)
		c.Set(middleware.ContextRoleKey, string(caller.Role))
		c.Next()
	}
}

func newTestEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(mw...)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

type dataBody struct {
	Data     json.RawMessage `json:"data"`
	Warnings []string        `json:"warnings"`
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) dataBody {
	t.Helper()
	var body dataBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func clientCaller() service.Caller {
	return service.Caller{ID: uuid.New(), Role: valueobject.ActorClient}
}

func workerCaller() service.Caller {
	return service.Caller{ID: uuid.New(), Role: valueobject.ActorWorker}
}
