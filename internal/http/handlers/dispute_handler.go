package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/crew-shifts-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crew-shifts-backend/internal/dto"
	"github.com/ignatzorin/crew-shifts-backend/internal/http/handlers/common"
	"github.com/ignatzorin/crew-shifts-backend/internal/models"
	"github.com/ignatzorin/crew-shifts-backend/internal/service"
)

// Disputes операции разбора споров.
type Disputes interface {
	OpenDispute(ctx context.Context, caller service.Caller, in service.OpenDisputeInput) (*service.DisputeResult, error)
	TakeInReview(ctx context.Context, caller service.Caller, disputeID uuid.UUID) (*models.Dispute, error)
	ResolveDispute(ctx context.Context, caller service.Caller, disputeID uuid.UUID, in service.ResolveDisputeInput) (*service.DisputeResult, error)
	GetDispute(ctx context.Context, caller service.Caller, disputeID uuid.UUID) (*models.Dispute, error)
	ListMyDisputes(ctx context.Context, caller service.Caller, limit, offset int) ([]*models.Dispute, error)
	ListDisputes(ctx context.Context, caller service.Caller, status *valueobject.DisputeStatus, limit, offset int) ([]*models.Dispute, error)
}

type DisputeHandler struct {
	disputes Disputes
}

func NewDisputeHandler(disputes Disputes) *DisputeHandler {
	return &DisputeHandler{disputes: disputes}
}

// OpenDispute POST /disputes
func (h *DisputeHandler) OpenDispute(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	var req dto.OpenDisputeRequest
	if err := common.BindJSON(c, &req, false); err != nil {
		common.RespondError(c, err)
		return
	}

	res, err := h.disputes.OpenDispute(c.Request.Context(), caller, service.OpenDisputeInput{
		ShiftID:       req.ShiftID,
		AgainstUserID: req.AgainstUserID,
		Reason:        req.Reason,
		Description:   req.Description,
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}

	common.RespondData(c, http.StatusCreated, res, res.Warnings)
}

// ListMyDisputes GET /disputes
func (h *DisputeHandler) ListMyDisputes(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	limit, offset := common.GetPagination(c)
	disputes, err := h.disputes.ListMyDisputes(c.Request.Context(), caller, limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	common.RespondList(c, disputes, limit, offset)
}

// GetDispute GET /disputes/:id
func (h *DisputeHandler) GetDispute(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	dispute, err := h.disputes.GetDispute(c.Request.Context(), caller, disputeID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	common.RespondData(c, http.StatusOK, dispute, nil)
}

// ListDisputes GET /admin/disputes?status=open
func (h *DisputeHandler) ListDisputes(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	var status *valueobject.DisputeStatus
	if raw := c.Query("status"); raw != "" {
		st := valueobject.DisputeStatus(raw)
		status = &st
	}

	limit, offset := common.GetPagination(c)
	disputes, err := h.disputes.ListDisputes(c.Request.Context(), caller, status, limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	common.RespondList(c, disputes, limit, offset)
}

// TakeInReview POST /admin/disputes/:id/review
func (h *DisputeHandler) TakeInReview(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	dispute, err := h.disputes.TakeInReview(c.Request.Context(), caller, disputeID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	common.RespondData(c, http.StatusOK, dispute, nil)
}

// ResolveDispute POST /admin/disputes/:id/resolve
func (h *DisputeHandler) ResolveDispute(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	var req dto.ResolveDisputeRequest
	if err := common.BindJSON(c, &req, false); err != nil {
		common.RespondError(c, err)
		return
	}

	in := service.ResolveDisputeInput{
		Outcome:        valueobject.DisputeOutcome(req.Outcome),
		ResolutionText: req.Resolution,
		AdminNotes:     req.AdminNotes,
		ApplyRefund:    req.ApplyRefund,
	}
	if req.Ban != nil {
		in.Ban = &service.BanInput{Duration: req.Ban.BanDuration(), Reason: req.Ban.Reason}
	}

	res, err := h.disputes.ResolveDispute(c.Request.Context(), caller, disputeID, in)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	common.RespondData(c, http.StatusOK, res, res.Warnings)
}
