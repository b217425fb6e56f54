package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/crew-shifts-backend/internal/dto"
	"github.com/ignatzorin/crew-shifts-backend/internal/http/handlers/common"
	"github.com/ignatzorin/crew-shifts-backend/internal/models"
)

// AssignmentHandler обслуживает действия работника по назначению.
type AssignmentHandler struct {
	shifts ShiftWorkflow
}

// NewAssignmentHandler создаёт новый хэндлер.
func NewAssignmentHandler(shifts ShiftWorkflow) *AssignmentHandler {
	return &AssignmentHandler{shifts: shifts}
}

// OnWay POST /assignments/:id/on-way
func (h *AssignmentHandler) OnWay(c *gin.Context) {
	transitionByParam(c, "id", h.shifts.MarkOnWay)
}

// CheckIn POST /assignments/:id/check-in
func (h *AssignmentHandler) CheckIn(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	assignmentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	var req dto.CheckInRequest
	if err := common.BindJSON(c, &req, true); err != nil {
		common.RespondError(c, err)
		return
	}

	// Время отметки выставляет сервис.
	res, err := h.shifts.CheckIn(c.Request.Context(), caller, assignmentID, models.CheckInEvidence{
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		PhotoHandle: req.PhotoHandle,
	})
	respondTransition(c, res, err)
}

// CheckOut POST /assignments/:id/check-out
func (h *AssignmentHandler) CheckOut(c *gin.Context) {
	transitionByParam(c, "id", h.shifts.CheckOut)
}

// Confirm POST /assignments/:id/confirm
func (h *AssignmentHandler) Confirm(c *gin.Context) {
	transitionByParam(c, "id", h.shifts.ConfirmCompletion)
}
