package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/crew-shifts-backend/internal/dto"
	"github.com/ignatzorin/crew-shifts-backend/internal/http/handlers/common"
	"github.com/ignatzorin/crew-shifts-backend/internal/models"
	"github.com/ignatzorin/crew-shifts-backend/internal/service"
)

// ShiftWorkflow операции жизненного цикла смены.
type ShiftWorkflow interface {
	CreateShift(ctx context.Context, caller service.Caller, in service.CreateShiftInput) (*models.Shift, error)
	GetShiftDetails(ctx context.Context, caller service.Caller, shiftID uuid.UUID) (*models.ShiftDetails, error)
	ApplyToShift(ctx context.Context, caller service.Caller, shiftID uuid.UUID, message *string) (*models.Application, error)
	ApproveApplication(ctx context.Context, caller service.Caller, shiftID, workerID uuid.UUID) (*service.TransitionResult, error)
	MarkOnWay(ctx context.Context, caller service.Caller, assignmentID uuid.UUID) (*service.TransitionResult, error)
	CheckIn(ctx context.Context, caller service.Caller, assignmentID uuid.UUID, evidence models.CheckInEvidence) (*service.TransitionResult, error)
	CheckOut(ctx context.Context, caller service.Caller, assignmentID uuid.UUID) (*service.TransitionResult, error)
	CompleteShift(ctx context.Context, caller service.Caller, shiftID uuid.UUID) (*service.TransitionResult, error)
	ConfirmCompletion(ctx context.Context, caller service.Caller, assignmentID uuid.UUID) (*service.TransitionResult, error)
	FinalizeShift(ctx context.Context, caller service.Caller, shiftID uuid.UUID, force bool) (*service.TransitionResult, error)
	CancelShift(ctx context.Context, caller service.Caller, shiftID uuid.UUID, reason *string) (*service.TransitionResult, error)
}

// ShiftHandler обслуживает маршруты /shifts.
type ShiftHandler struct {
	shifts ShiftWorkflow
}

// NewShiftHandler создаёт новый хэндлер.
func NewShiftHandler(shifts ShiftWorkflow) *ShiftHandler {
	return &ShiftHandler{shifts: shifts}
}

// CreateShift POST /shifts
func (h *ShiftHandler) CreateShift(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	var req dto.CreateShiftRequest
	if err := common.BindJSON(c, &req, false); err != nil {
		common.RespondError(c, err)
		return
	}

	shift, err := h.shifts.CreateShift(c.Request.Context(), caller, service.CreateShiftInput{
		ClientID:          req.ClientID,
		Title:             req.Title,
		Category:          req.Category,
		Location:          req.Location,
		StartsAt:          req.StartsAt,
		EndsAt:            req.EndsAt,
		RequiredWorkers:   req.RequiredWorkers,
		PayRate:           req.PayRate,
		CommissionPercent: req.CommissionPercent,
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}

	common.RespondData(c, http.StatusCreated, shift, nil)
}

// GetShift GET /shifts/:id
func (h *ShiftHandler) GetShift(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	shiftID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	details, err := h.shifts.GetShiftDetails(c.Request.Context(), caller, shiftID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	common.RespondData(c, http.StatusOK, details, nil)
}

// Apply POST /shifts/:id/applications
func (h *ShiftHandler) Apply(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	shiftID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	var req dto.ApplyToShiftRequest
	if err := common.BindJSON(c, &req, true); err != nil {
		common.RespondError(c, err)
		return
	}

	app, err := h.shifts.ApplyToShift(c.Request.Context(), caller, shiftID, req.Message)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	common.RespondData(c, http.StatusCreated, app, nil)
}

// Approve POST /shifts/:id/applications/:workerId/approve
func (h *ShiftHandler) Approve(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	shiftID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}
	workerID, err := common.ParseUUIDParam(c, "workerId")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	res, err := h.shifts.ApproveApplication(c.Request.Context(), caller, shiftID, workerID)
	respondTransition(c, res, err)
}

// Complete POST /shifts/:id/complete
func (h *ShiftHandler) Complete(c *gin.Context) {
	h.shiftTransition(c, h.shifts.CompleteShift)
}

// Cancel POST /shifts/:id/cancel
func (h *ShiftHandler) Cancel(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	shiftID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	var req dto.CancelShiftRequest
	if err := common.BindJSON(c, &req, true); err != nil {
		common.RespondError(c, err)
		return
	}

	res, err := h.shifts.CancelShift(c.Request.Context(), caller, shiftID, req.Reason)
	respondTransition(c, res, err)
}

// Finalize POST /admin/shifts/:id/finalize
func (h *ShiftHandler) Finalize(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	shiftID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	var req dto.FinalizeShiftRequest
	if err := common.BindJSON(c, &req, true); err != nil {
		common.RespondError(c, err)
		return
	}

	res, err := h.shifts.FinalizeShift(c.Request.Context(), caller, shiftID, req.Force)
	respondTransition(c, res, err)
}

type transitionFunc func(ctx context.Context, caller service.Caller, id uuid.UUID) (*service.TransitionResult, error)

func (h *ShiftHandler) shiftTransition(c *gin.Context, fn transitionFunc) {
	transitionByParam(c, "id", fn)
}

// transitionByParam общий путь для переходов без тела запроса.
func transitionByParam(c *gin.Context, param string, fn transitionFunc) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	id, err := common.ParseUUIDParam(c, param)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	res, err := fn(c.Request.Context(), caller, id)
	respondTransition(c, res, err)
}

func respondTransition(c *gin.Context, res *service.TransitionResult, err error) {
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.RespondData(c, http.StatusOK, res, res.Warnings)
}
