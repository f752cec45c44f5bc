package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unibody-docs-api/internal/dto"
	"github.com/noah-isme/unibody-docs-api/internal/models"
	appErrors "github.com/noah-isme/unibody-docs-api/pkg/errors"
	"github.com/noah-isme/unibody-docs-api/pkg/pagination"
	"github.com/noah-isme/unibody-docs-api/pkg/response"
)

type unitService interface {
	List(ctx context.Context, p *models.Principal, params dto.UnitListQuery) ([]models.OrganizationalUnit, pagination.Meta, error)
	Get(ctx context.Context, p *models.Principal, id string) (*models.OrganizationalUnit, error)
	Create(ctx context.Context, p *models.Principal, req dto.CreateUnitRequest, meta models.RequestMeta) (*models.OrganizationalUnit, error)
	Update(ctx context.Context, p *models.Principal, id string, req dto.UpdateUnitRequest, meta models.RequestMeta) (*models.OrganizationalUnit, error)
	Delete(ctx context.Context, p *models.Principal, id string, meta models.RequestMeta) error
}

// UnitHandler exposes organizational unit endpoints.
type UnitHandler struct {
	service unitService
}

// NewUnitHandler constructs the handler.
func NewUnitHandler(svc unitService) *UnitHandler {
	return &UnitHandler{service: svc}
}

// List godoc
// @Summary List organizational units
// @Tags Units
// @Produce json
// @Param type query string false "Unit type"
// @Param active query bool false "Active filter"
// @Param search query string false "Name search"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /units [get]
func (h *UnitHandler) List(c *gin.Context) {
	var params dto.UnitListQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	units, page, err := h.service.List(c.Request.Context(), principalFromContext(c), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, units, &page)
}

// Get godoc
// @Summary Get organizational unit
// @Tags Units
// @Produce json
// @Param id path string true "Unit ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /units/{id} [get]
func (h *UnitHandler) Get(c *gin.Context) {
	unit, err := h.service.Get(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, unit, nil)
}

// Create godoc
// @Summary Create organizational unit
// @Tags Units
// @Accept json
// @Produce json
// @Param payload body dto.CreateUnitRequest true "Unit payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /units [post]
func (h *UnitHandler) Create(c *gin.Context) {
	var req dto.CreateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	unit, err := h.service.Create(c.Request.Context(), principalFromContext(c), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, unit)
}

// Update godoc
// @Summary Update organizational unit
// @Tags Units
// @Accept json
// @Produce json
// @Param id path string true "Unit ID"
// @Param payload body dto.UpdateUnitRequest true "Unit payload"
// @Success 200 {object} response.Envelope
// @Router /units/{id} [put]
func (h *UnitHandler) Update(c *gin.Context) {
	var req dto.UpdateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	unit, err := h.service.Update(c.Request.Context(), principalFromContext(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, unit, nil)
}

// Delete godoc
// @Summary Delete organizational unit
// @Tags Units
// @Param id path string true "Unit ID"
// @Success 204
// @Router /units/{id} [delete]
func (h *UnitHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), principalFromContext(c), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
