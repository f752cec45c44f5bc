package handler

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unibody-docs-api/internal/dto"
	"github.com/noah-isme/unibody-docs-api/internal/middleware"
	"github.com/noah-isme/unibody-docs-api/internal/models"
	appErrors "github.com/noah-isme/unibody-docs-api/pkg/errors"
	"github.com/noah-isme/unibody-docs-api/pkg/pagination"
	"github.com/noah-isme/unibody-docs-api/pkg/response"
)

type documentService interface {
	List(ctx context.Context, p *models.Principal, params dto.DocumentListQuery) (*dto.DocumentListResult, error)
	PendingQueue(ctx context.Context, p *models.Principal, page, pageSize int) (*dto.DocumentListResult, error)
	Stats(ctx context.Context, p *models.Principal, params dto.DocumentListQuery) (*models.DocumentStats, error)
	Get(ctx context.Context, p *models.Principal, id string) (*models.Document, error)
	Upload(ctx context.Context, p *models.Principal, req dto.CreateDocumentRequest, file *dto.FileUpload, meta models.RequestMeta) (*models.Document, error)
	Update(ctx context.Context, p *models.Principal, id string, req dto.UpdateDocumentRequest, file *dto.FileUpload, meta models.RequestMeta) (*models.Document, error)
	Delete(ctx context.Context, p *models.Principal, id string, meta models.RequestMeta) error
	Approve(ctx context.Context, p *models.Principal, id string, meta models.RequestMeta) (*models.Document, error)
	Reject(ctx context.Context, p *models.Principal, id string, req dto.RejectDocumentRequest, meta models.RequestMeta) (*models.Document, error)
	Download(ctx context.Context, p *models.Principal, id string, meta models.RequestMeta) (*dto.FileContent, error)
	Preview(ctx context.Context, id string) (*dto.FileContent, error)
	Export(ctx context.Context, p *models.Principal, params dto.ExportDocumentsQuery) (*dto.DocumentExport, error)
}

type pageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=1000"`
}

// DocumentHandler exposes the document workflow endpoints.
type DocumentHandler struct {
	service documentService
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(svc documentService) *DocumentHandler {
	return &DocumentHandler{service: svc}
}

// List godoc
// @Summary List documents
// @Description Lists documents visible to the caller. Anonymous callers only see public approved documents.
// @Tags Documents
// @Produce json
// @Param view query string false "all, unit or mine"
// @Param search query string false "Matches title or description"
// @Param unit_id query string false "Unit filter"
// @Param approval_status query string false "pending, approved or rejected"
// @Param type query string false "MIME type filter"
// @Param sort_by query string false "Sort column"
// @Param sort_order query string false "asc or desc"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	var params dto.DocumentListQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	res, err := h.service.List(c.Request.Context(), principalFromContext(c), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, res.Cached)
	page := pagination.Compute(res.Total, res.Query.Page, res.Query.PageSize)
	response.JSON(c, http.StatusOK, res.Items, &page, middleware.ExtractMeta(c))
}

// Pending godoc
// @Summary Pending approval queue
// @Description Documents awaiting review in the caller's unit, oldest request first
// @Tags Documents
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /documents/pending [get]
func (h *DocumentHandler) Pending(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid pagination parameters"))
		return
	}
	res, err := h.service.PendingQueue(c.Request.Context(), principalFromContext(c), q.Page, q.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	page := pagination.Compute(res.Total, res.Query.Page, res.Query.PageSize)
	response.JSON(c, http.StatusOK, res.Items, &page)
}

// Stats godoc
// @Summary Document statistics
// @Tags Documents
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /documents/stats [get]
func (h *DocumentHandler) Stats(c *gin.Context) {
	var params dto.DocumentListQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), principalFromContext(c), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Export the document register
// @Tags Documents
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /documents/export [get]
func (h *DocumentHandler) Export(c *gin.Context) {
	var params dto.ExportDocumentsQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	res, err := h.service.Export(c.Request.Context(), principalFromContext(c), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, res.ContentType, res.Data)
}

// Get godoc
// @Summary Get document metadata
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.service.Get(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Create godoc
// @Summary Upload a document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param unit_id formData string false "Owning unit (admins only)"
// @Param is_public formData bool false "Request public visibility"
// @Param file formData file true "Document"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document payload"))
		return
	}
	file, err := readUpload(c, true)
	if err != nil {
		response.Error(c, err)
		return
	}
	doc, err := h.service.Upload(c.Request.Context(), principalFromContext(c), req, file, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// Update godoc
// @Summary Update a document
// @Description Partial update. Accepts JSON, or multipart when replacing the file.
// @Tags Documents
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /documents/{id} [put]
func (h *DocumentHandler) Update(c *gin.Context) {
	var req dto.UpdateDocumentRequest
	var file *dto.FileUpload
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document payload"))
			return
		}
		var err error
		if file, err = readUpload(c, false); err != nil {
			response.Error(c, err)
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document payload"))
		return
	}

	doc, err := h.service.Update(c.Request.Context(), principalFromContext(c), c.Param("id"), req, file, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Delete godoc
// @Summary Delete a document
// @Tags Documents
// @Param id path string true "Document ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), principalFromContext(c), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Approve godoc
// @Summary Approve a pending document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /documents/{id}/approve [post]
func (h *DocumentHandler) Approve(c *gin.Context) {
	doc, err := h.service.Approve(c.Request.Context(), principalFromContext(c), c.Param("id"), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Reject godoc
// @Summary Reject a pending document
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.RejectDocumentRequest false "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /documents/{id}/reject [post]
func (h *DocumentHandler) Reject(c *gin.Context) {
	var req dto.RejectDocumentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
			return
		}
	}
	doc, err := h.service.Reject(c.Request.Context(), principalFromContext(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Download godoc
// @Summary Download a public document
// @Tags Documents
// @Produce octet-stream
// @Param id path string true "Document ID"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /documents/{id}/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	content, err := h.service.Download(c.Request.Context(), principalFromContext(c), c.Param("id"), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeFile(c, content, "attachment")
}

// Preview godoc
// @Summary Preview a public document inline
// @Tags Documents
// @Produce octet-stream
// @Param id path string true "Document ID"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /documents/{id}/preview [get]
func (h *DocumentHandler) Preview(c *gin.Context) {
	content, err := h.service.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeFile(c, content, "inline")
}

func writeFile(c *gin.Context, content *dto.FileContent, disposition string) {
	contentType := content.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": content.Filename}))
	c.Header("Content-Length", fmt.Sprintf("%d", content.Size))
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, contentType, content.Data)
}

// readUpload buffers the "file" form field. A missing file is an error only when required.
func readUpload(c *gin.Context, required bool) (*dto.FileUpload, error) {
	header, err := c.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile && !required {
			return nil, nil
		}
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "file is required",
			[]appErrors.FieldError{{Field: "file", Message: "is required"}})
	}
	src, err := header.Open()
	if err != nil {
		return nil, appErrors.Internal(err, "failed to open uploaded file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to buffer uploaded file")
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return &dto.FileUpload{
		Data:     data,
		Filename: header.Filename,
		MimeType: mimeType,
		Size:     int64(len(data)),
	}, nil
}
