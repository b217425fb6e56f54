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

// Ratings операции рейтинга.
type Ratings interface {
	SubmitRating(ctx context.Context, caller service.Caller, shiftID, toUserID uuid.UUID, value int, comment *string) (*service.RatingResult, error)
	GetUserRating(ctx context.Context, userID uuid.UUID) (*models.UserRatingStat, error)
	ListUserRatings(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Rating, error)
	ListShiftRatings(ctx context.Context, shiftID uuid.UUID) ([]*models.Rating, error)
}

type RatingHandler struct {
	ratings Ratings
}

func NewRatingHandler(ratings Ratings) *RatingHandler {
	return &RatingHandler{ratings: ratings}
}

// SubmitRating POST /shifts/:id/ratings
func (h *RatingHandler) SubmitRating(c *gin.Context) {
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

	var req dto.SubmitRatingRequest
	if err := common.BindJSON(c, &req, false); err != nil {
		common.RespondError(c, err)
		return
	}

	res, err := h.ratings.SubmitRating(c.Request.Context(), caller, shiftID, req.ToUserID, req.Value, req.Comment)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	common.RespondData(c, http.StatusCreated, res, res.Warnings)
}

// ListShiftRatings GET /shifts/:id/ratings
func (h *RatingHandler) ListShiftRatings(c *gin.Context) {
	shiftID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	ratings, err := h.ratings.ListShiftRatings(c.Request.Context(), shiftID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	common.RespondData(c, http.StatusOK, ratings, nil)
}

// GetUserRating GET /users/:id/rating
func (h *RatingHandler) GetUserRating(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	stat, err := h.ratings.GetUserRating(c.Request.Context(), userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	common.RespondData(c, http.StatusOK, stat, nil)
}

// ListUserRatings GET /users/:id/ratings
func (h *RatingHandler) ListUserRatings(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	limit, offset := common.GetPagination(c)
	ratings, err := h.ratings.ListUserRatings(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	common.RespondList(c, ratings, limit, offset)
}
