package quotes

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"backoffice/internal/shared/server/middleware"
	"backoffice/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the quotes service and token guard.
type Handler struct {
	Svc   *Service
	Guard *TokenGuard
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, guard *TokenGuard) *Handler {
	return &Handler{Svc: svc, Guard: guard}
}

// RegisterPublicRoutes attaches the token endpoints, which take no staff identity.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/quotes/approve-check", h.approveCheck)
	rg.POST("/quotes/approve-confirm", h.approveConfirm)
}

// RegisterRoutes attaches staff routes. rg must already run middleware.Auth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/quotes/", h.create)
	rg.GET("/quotes/", h.list)
	rg.GET("/quotes/:id", h.get)
	admin := middleware.RequireRoles(middleware.RoleAdmin)
	rg.POST("/quotes/:id/approve", admin, h.approve)
	rg.POST("/quotes/:id/reject", admin, h.reject)
}

type createRequest struct {
	Customer string   `json:"customer"`
	Total    *float64 `json:"total"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.Total == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "total is required", nil)
		return
	}

	q, err := h.Svc.Create(c.Request.Context(), req.Customer, *req.Total)
	if err != nil {
		writeError(c, err, "failed to create quote")
		return
	}
	c.Set(middleware.QuoteIDKey, q.ID)
	respond.JSON(c, http.StatusOK, q)
}

func (h *Handler) list(c *gin.Context) {
	out, err := h.Svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err, "failed to list quotes")
		return
	}
	respond.OK(c, out)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.QuoteIDKey, id)
	q, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "failed to fetch quote")
		return
	}
	respond.OK(c, q)
}

func (h *Handler) approve(c *gin.Context) {
	h.transition(c, h.Svc.Approve)
}

func (h *Handler) reject(c *gin.Context) {
	h.transition(c, h.Svc.Reject)
}

func (h *Handler) transition(c *gin.Context, fn func(ctx context.Context, id, path string) (Quote, error)) {
	id := c.Param("id")
	c.Set(middleware.QuoteIDKey, id)
	q, err := fn(c.Request.Context(), id, PathStaff)
	if err != nil {
		writeError(c, err, "failed to update quote")
		return
	}
	c.Set(middleware.StatusTransitionKey, "pending->"+q.Status)
	respond.OK(c, q)
}

func (h *Handler) approveCheck(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	res, err := h.Guard.Check(c.Request.Context(), req.Token)
	if err != nil {
		writeError(c, err, "failed to check token")
		return
	}
	if res.QuoteID != nil {
		c.Set(middleware.QuoteIDKey, *res.QuoteID)
	}
	respond.OK(c, res)
}

func (h *Handler) approveConfirm(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	q, err := h.Guard.Confirm(c.Request.Context(), req.Token)
	if err != nil {
		writeError(c, err, "failed to confirm quote")
		return
	}
	c.Set(middleware.QuoteIDKey, q.ID)
	c.Set(middleware.StatusTransitionKey, "pending->"+q.Status)
	respond.OK(c, q)
}

// writeError maps service errors onto stable HTTP codes.
func writeError(c *gin.Context, err error, fallback string) {
	var rl *RateLimitError
	switch {
	case errors.As(err, &rl):
		c.Header("Retry-After", strconv.Itoa(middleware.RetryAfterSeconds(rl.RetryAfter)))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
	case errors.Is(err, ErrTokenRequired):
		respond.Error(c, http.StatusBadRequest, "token_required", "token is required", nil)
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "quote_not_found", "quote not found", nil)
	case errors.Is(err, ErrTokenExpired):
		respond.Error(c, http.StatusGone, "token_expired", "approval link has expired", nil)
	case errors.Is(err, ErrInvalidTransition):
		respond.Error(c, http.StatusConflict, "invalid_transition", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
