package review

import (
	"net/http"
	"strconv"

	"staybook/internal/domain"
	"staybook/internal/middleware"
	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/response"
	"staybook/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/reviews", h.List)
	rg.GET("/reviews/:id", h.Get)
	rg.POST("/reviews", h.Create)
	rg.PUT("/reviews/:id", h.Update)
	rg.DELETE("/reviews/:id", h.Delete)
	rg.GET("/ratings", h.Rating)
}

// Create godoc
// @Summary      Write a review
// @Description  A booking's tenant reviews the apartment or the landlord; the landlord reviews the tenant. One review per booking and target kind.
// @Tags         Reviews
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body CreateReviewRequest true "Review"
// @Success      201 {object} ReviewResponse
// @Failure      400 {object} response.ErrorBody
// @Failure      403 {object} response.ErrorBody
// @Failure      404 {object} response.ErrorBody
// @Failure      409 {object} response.ErrorBody
// @Router       /reviews [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(validator.BindError("Invalid request body", err))
		return
	}
	target, err := domain.NewReviewTarget(req.ApartmentID, req.UserID)
	if err != nil {
		_ = c.Error(apperr.Validation("INVALID_REVIEW_TARGET", err.Error(), map[string]any{"fields": []string{"apartmentId", "userId"}}))
		return
	}

	rv, err := h.svc.Create(c.Request.Context(), middleware.CurrentActor(c), CreateInput{
		BookingID: req.BookingID,
		Target:    target,
		Scores:    req.ScoresDTO.toDomain(),
		Comment:   req.Comment,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, toReviewResponse(rv))
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := reviewID(c)
	if !ok {
		return
	}
	var req UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(validator.BindError("Invalid request body", err))
		return
	}
	rv, err := h.svc.Update(c.Request.Context(), middleware.CurrentActor(c), id, UpdateInput{
		Scores:  req.ScoresDTO.toDomain(),
		Comment: req.Comment,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, toReviewResponse(rv))
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := reviewID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := reviewID(c)
	if !ok {
		return
	}
	rv, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, toReviewResponse(rv))
}

// List godoc
// @Summary      List reviews of an apartment or a user
// @Tags         Reviews
// @Security     BearerAuth
// @Produce      json
// @Param        apartmentId query int false "Apartment ID"
// @Param        userId      query int false "User ID"
// @Param        limit       query int false "Page size (default 20, max 100)"
// @Param        offset      query int false "Offset"
// @Success      200 {object} ReviewListResponse
// @Failure      400 {object} response.ErrorBody
// @Router       /reviews [get]
func (h *Handler) List(c *gin.Context) {
	target, ok := queryTarget(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	page, err := h.svc.List(c.Request.Context(), target, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}
	out := ReviewListResponse{Items: make([]ReviewResponse, 0, len(page.Items)), Total: page.Total}
	for i := range page.Items {
		out.Items = append(out.Items, toReviewResponse(&page.Items[i]))
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) Rating(c *gin.Context) {
	target, ok := queryTarget(c)
	if !ok {
		return
	}
	rt, err := h.svc.RatingFor(c.Request.Context(), target)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, ToRatingResponse(target, rt))
}

func queryTarget(c *gin.Context) (domain.ReviewTarget, bool) {
	apartmentID, aErr := optionalID(c.Query("apartmentId"))
	userID, uErr := optionalID(c.Query("userId"))
	if aErr == nil && uErr == nil {
		if t, err := domain.NewReviewTarget(apartmentID, userID); err == nil {
			return t, true
		}
	}
	_ = c.Error(apperr.Validation("INVALID_REVIEW_TARGET", "exactly one of apartmentId or userId is required", map[string]any{
		"fields": []string{"apartmentId", "userId"},
	}))
	return domain.ReviewTarget{}, false
}

func optionalID(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func reviewID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		_ = c.Error(apperr.Validation("INVALID_ID", "invalid review id", map[string]any{"field": "id"}))
		return 0, false
	}
	return id, true
}
