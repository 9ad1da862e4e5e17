package cfdi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"backoffice/internal/shared/server/middleware"
	"backoffice/internal/shared/server/respond"
	"backoffice/internal/shared/util"
)

// Handler exposes the issuance queue and generated documents.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches cfdi routes. rg must already run middleware.Auth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := middleware.RequireRoles(middleware.RoleAdmin)
	rg.POST("/cfdi/", admin, h.generate)
	rg.POST("/cfdi/process-pending", admin, h.processPending)
	rg.POST("/cfdi/recover", admin, h.requeue)
	rg.GET("/cfdi/pending", admin, h.listJobs)
	rg.GET("/cfdi/pending/:id", admin, h.getJob)
	rg.GET("/cfdi/documents", h.listDocuments)
	rg.GET("/cfdi/documents/:uuid", h.getDocument)
}

type processRequest struct {
	Limit *int `json:"limit"`
}

type generateRequest struct {
	Customer string `json:"customer"`
	Items    []Item `json:"items"`
}

type generateResponse struct {
	UUID   string `json:"uuid"`
	XMLURL string `json:"xml_url"`
	PDFURL string `json:"pdf_url"`
	Status string `json:"status"`
}

func (h *Handler) processPending(c *gin.Context) {
	var req processRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}
	limit := DefaultDrainLimit
	if req.Limit != nil {
		if *req.Limit <= 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be positive", nil)
			return
		}
		limit = *req.Limit
	}

	processed, err := h.Svc.Drain(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err, "failed to process pending documents")
		return
	}
	respond.OK(c, gin.H{"processed": processed})
}

func (h *Handler) requeue(c *gin.Context) {
	n, err := h.Svc.Recover(c.Request.Context())
	if err != nil {
		writeError(c, err, "failed to requeue pending documents")
		return
	}
	respond.OK(c, gin.H{"requeued": n})
}

func (h *Handler) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	doc, err := h.Svc.GenerateDirect(c.Request.Context(), req.Customer, req.Items)
	if err != nil {
		writeError(c, err, "failed to generate document")
		return
	}
	respond.Created(c, generateResponse{
		UUID:   doc.UUID,
		XMLURL: doc.XMLURL,
		PDFURL: doc.PDFURL,
		Status: doc.Status,
	})
}

func (h *Handler) listJobs(c *gin.Context) {
	jobs, err := h.Svc.ListJobs(c.Request.Context(), strings.TrimSpace(c.Query("status")))
	if err != nil {
		writeError(c, err, "failed to list jobs")
		return
	}
	respond.OK(c, jobs)
}

func (h *Handler) getJob(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.JobIDKey, id)
	job, err := h.Svc.GetJob(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "failed to fetch job")
		return
	}
	c.Set(middleware.QuoteIDKey, job.QuoteID)
	respond.OK(c, job)
}

func (h *Handler) listDocuments(c *gin.Context) {
	quoteID := c.Query("quote_id")
	c.Set(middleware.QuoteIDKey, quoteID)
	docs, err := h.Svc.ListDocuments(c.Request.Context(), quoteID)
	if err != nil {
		writeError(c, err, "failed to list documents")
		return
	}
	respond.OK(c, docs)
}

func (h *Handler) getDocument(c *gin.Context) {
	id := c.Param("uuid")
	file := strings.ToLower(strings.TrimSpace(c.Query("file")))
	if file == "" {
		doc, err := h.Svc.GetDocument(c.Request.Context(), id)
		if err != nil {
			writeError(c, err, "failed to fetch document")
			return
		}
		if doc.QuoteID != "" {
			c.Set(middleware.QuoteIDKey, doc.QuoteID)
		}
		respond.OK(c, doc)
		return
	}

	rc, contentType, err := h.Svc.OpenDocumentFile(c.Request.Context(), id, file)
	if err != nil {
		writeError(c, err, "failed to open document")
		return
	}
	defer rc.Close()
	if name, err := util.SanitizeFileName(id + "." + file); err == nil {
		c.Header("Content-Disposition", `inline; filename="`+name+`"`)
	}
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "job_not_found", "job not found", nil)
	case errors.Is(err, ErrDocumentNotFound):
		respond.Error(c, http.StatusNotFound, "document_not_found", "document not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
