package apartment

import (
	"context"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"staybook/internal/domain"
	"staybook/internal/middleware"
	"staybook/internal/modules/image"
	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/response"
	"staybook/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 32 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	owners := middleware.RequireRole(string(domain.RoleLandlord), string(domain.RoleAdmin))

	rg.POST("/establishments", owners, h.CreateEstablishment)
	rg.GET("/establishments/:id", h.GetEstablishment)
	rg.POST("/establishments/:id/apartments", owners, h.CreateApartment)
	rg.PUT("/establishments/:id/photos", owners, h.UpdateEstablishmentPhotos)

	rg.GET("/apartments/:id", h.GetApartment)
	rg.DELETE("/apartments/:id", owners, h.DeleteApartment)
	rg.PUT("/apartments/:id/photos", owners, h.UpdateApartmentPhotos)
}

func (h *Handler) CreateEstablishment(c *gin.Context) {
	var req CreateEstablishmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(validator.BindError("Invalid request body", err))
		return
	}
	e, err := h.service.CreateEstablishment(c.Request.Context(), middleware.CurrentActor(c), EstablishmentInput{
		OwnerID: req.OwnerID,
		Name:    req.Name,
		Address: req.Address,
		Vibe:    req.Vibe,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, toEstablishmentResponse(e, nil))
}

func (h *Handler) GetEstablishment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	e, imgs, err := h.service.GetEstablishment(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, toEstablishmentResponse(e, imgs))
}

func (h *Handler) CreateApartment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req CreateApartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(validator.BindError("Invalid request body", err))
		return
	}
	a, err := h.service.CreateApartment(c.Request.Context(), middleware.CurrentActor(c), id, ApartmentInput{
		Name:     req.Name,
		Capacity: req.Capacity,
		Price:    req.Price,
		Currency: req.Currency,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, toApartmentResponse(a, nil, nil))
}

// GetApartment godoc
// @Summary      Apartment details
// @Description  Returns the apartment with its aggregate rating (10 on every dimension until reviewed) and photos
// @Tags         Apartments
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "Apartment ID"
// @Success      200 {object} ApartmentResponse
// @Failure      404 {object} response.ErrorBody
// @Router       /apartments/{id} [get]
func (h *Handler) GetApartment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	d, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, toApartmentResponse(d.Apartment, d.Rating, d.Images))
}

// DeleteApartment godoc
// @Summary      Delete apartment
// @Description  Fails while the apartment has bookings that have not ended
// @Tags         Apartments
// @Security     BearerAuth
// @Param        id path int true "Apartment ID"
// @Success      204
// @Failure      400 {object} response.ErrorBody
// @Failure      403 {object} response.ErrorBody
// @Failure      404 {object} response.ErrorBody
// @Router       /apartments/{id} [delete]
func (h *Handler) DeleteApartment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateApartmentPhotos godoc
// @Summary      Replace apartment photos
// @Description  Multipart form: repeated "keep" ids of photos to retain and "files" to upload. Photos not kept are deleted.
// @Tags         Apartments
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        id    path     int    true  "Apartment ID"
// @Param        keep  formData []int  false "Photo ids to keep"
// @Param        files formData file   false "New photos"
// @Success      200 {array} ImageResponse
// @Failure      502 {object} response.ErrorBody
// @Router       /apartments/{id}/photos [put]
func (h *Handler) UpdateApartmentPhotos(c *gin.Context) {
	h.updatePhotos(c, h.service.UpdateApartmentPhotos)
}

func (h *Handler) UpdateEstablishmentPhotos(c *gin.Context) {
	h.updatePhotos(c, h.service.UpdateEstablishmentPhotos)
}

type photoUpdater func(ctx context.Context, actor domain.Actor, id int64, keep []int64, add []image.NewImage) ([]domain.Image, error)

func (h *Handler) updatePhotos(c *gin.Context, update photoUpdater) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		_ = c.Error(apperr.Validation("INVALID_FORM", "Failed to parse multipart form", map[string]any{"reason": err.Error()}))
		return
	}
	form := c.Request.MultipartForm
	defer func() { _ = form.RemoveAll() }()

	keep, err := parseKeep(form.Value["keep"])
	if err != nil {
		_ = c.Error(apperr.Validation("INVALID_FORM", "keep must list photo ids", map[string]any{"field": "keep"}))
		return
	}

	files := form.File["files"]
	add := make([]image.NewImage, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			_ = c.Error(apperr.Validation("INVALID_FORM", "Failed to read uploaded file", map[string]any{"file": fh.Filename}))
			return
		}
		defer f.Close()
		add = append(add, image.NewImage{
			Name:        fh.Filename,
			ContentType: contentType(fh),
			Size:        fh.Size,
			Body:        f,
		})
	}

	imgs, err := update(c.Request.Context(), middleware.CurrentActor(c), id, keep, add)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, toImageResponses(imgs))
}

// parseKeep accepts repeated fields and comma-separated lists.
func parseKeep(values []string) ([]int64, error) {
	out := []int64{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, apperr.ErrValidation
			}
			out = append(out, id)
		}
	}
	return out, nil
}

func contentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		_ = c.Error(apperr.Validation("INVALID_ID", "invalid id", map[string]any{"field": "id"}))
		return 0, false
	}
	return id, true
}
