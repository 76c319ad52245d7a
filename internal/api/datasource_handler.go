package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockaggr/internal/datasource"
	apperrors "stockaggr/internal/errors"
	"stockaggr/internal/logging"
)

// DataSourceHandler serves the source administration endpoints. Every
// write commits to the configuration store first and then forces a
// registry refresh, so edits take effect before the response returns.
type DataSourceHandler struct {
	manager *datasource.Manager
	store   datasource.Store
	log     *logging.Logger
}

// NewDataSourceHandler creates the source administration handler
func NewDataSourceHandler(manager *datasource.Manager, store datasource.Store, log *logging.Logger) *DataSourceHandler {
	return &DataSourceHandler{manager: manager, store: store, log: log}
}

// List handles GET /api/v1/datasources
func (h *DataSourceHandler) List(c *gin.Context) {
	statuses, err := h.manager.Statuses(c.Request.Context())
	if err != nil {
		respondError(c, mapError(err))
		return
	}
	respond(c, statuses)
}

// Get handles GET /api/v1/datasources/:name
func (h *DataSourceHandler) Get(c *gin.Context) {
	status, err := h.manager.Status(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, apperrors.WrapError(err, apperrors.ErrCodeSourceNotFound, "source not found"))
		return
	}
	respond(c, status)
}

// updateSourceRequest is the body of PUT /datasources/:name
type updateSourceRequest struct {
	Enabled          *bool   `json:"enabled"`
	Priority         *int    `json:"priority"`
	FailureThreshold *int    `json:"failure_threshold"`
	CooldownSeconds  *int    `json:"cooldown_seconds"`
	Credential       *string `json:"credential"`
}

// Update handles PUT /api/v1/datasources/:name. Unset fields keep their
// stored values.
func (h *DataSourceHandler) Update(c *gin.Context) {
	name := c.Param("name")

	var req updateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewAppError(apperrors.ErrCodeInvalidInput, "invalid request body", err))
		return
	}
	if req.FailureThreshold != nil && *req.FailureThreshold < 1 {
		respondError(c, apperrors.NewAppError(apperrors.ErrCodeInvalidInput, "failure_threshold must be at least 1", nil))
		return
	}
	if req.CooldownSeconds != nil && *req.CooldownSeconds < 0 {
		respondError(c, apperrors.NewAppError(apperrors.ErrCodeInvalidInput, "cooldown_seconds must not be negative", nil))
		return
	}

	ctx := c.Request.Context()
	cfg, err := h.store.Get(ctx, name)
	if err != nil {
		respondError(c, mapError(err))
		return
	}

	if req.Enabled != nil {
		cfg.Enabled = *req.Enabled
	}
	if req.Priority != nil {
		cfg.Priority = *req.Priority
	}
	if req.FailureThreshold != nil {
		cfg.FailureThreshold = *req.FailureThreshold
	}
	if req.CooldownSeconds != nil {
		cfg.CooldownSeconds = *req.CooldownSeconds
	}
	if req.Credential != nil {
		cfg.Credential = *req.Credential
	}

	if err := h.store.Upsert(ctx, cfg); err != nil {
		respondError(c, mapError(err))
		return
	}
	if err := h.manager.ForceRefresh(ctx); err != nil {
		respondError(c, mapError(err))
		return
	}

	h.log.WithFields(map[string]interface{}{
		"source": name,
		"user":   c.GetString("username"),
	}).Info("source configuration updated")

	status, err := h.manager.Status(ctx, name)
	if err != nil {
		respondError(c, mapError(err))
		return
	}
	respond(c, status)
}

// ResetBreaker handles POST /api/v1/datasources/:name/reset
func (h *DataSourceHandler) ResetBreaker(c *gin.Context) {
	name := c.Param("name")

	if err := h.manager.ResetBreaker(c.Request.Context(), name); err != nil {
		respondError(c, apperrors.WrapError(err, apperrors.ErrCodeSourceNotFound, "source not found"))
		return
	}

	h.log.WithFields(map[string]interface{}{
		"source": name,
		"user":   c.GetString("username"),
	}).Info("breaker reset")

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UpdatePriorities handles PUT /api/v1/datasources/priorities. The body
// maps source names to new priorities; all rows commit in one
// transaction.
func (h *DataSourceHandler) UpdatePriorities(c *gin.Context) {
	var priorities map[string]int
	if err := c.ShouldBindJSON(&priorities); err != nil {
		respondError(c, apperrors.NewAppError(apperrors.ErrCodeInvalidInput, "invalid request body", err))
		return
	}
	if len(priorities) == 0 {
		respondError(c, apperrors.NewAppError(apperrors.ErrCodeInvalidInput, "no priorities given", nil))
		return
	}

	ctx := c.Request.Context()
	if err := h.store.UpdatePriorities(ctx, priorities); err != nil {
		respondError(c, mapError(err))
		return
	}
	if err := h.manager.ForceRefresh(ctx); err != nil {
		respondError(c, mapError(err))
		return
	}

	h.log.WithField("user", c.GetString("username")).Info("source priorities updated")

	statuses, err := h.manager.Statuses(ctx)
	if err != nil {
		respondError(c, mapError(err))
		return
	}
	respond(c, statuses)
}
