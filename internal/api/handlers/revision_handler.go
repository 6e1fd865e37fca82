package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/andresuchdata/revdeploy/internal/revision"
	"github.com/andresuchdata/revdeploy/internal/service"
	"github.com/andresuchdata/revdeploy/internal/storage"
	"github.com/andresuchdata/revdeploy/pkg/logger"
	"github.com/gin-gonic/gin"
)

type RevisionHandler struct {
	service *service.DeployService
}

func NewRevisionHandler(service *service.DeployService) *RevisionHandler {
	return &RevisionHandler{service: service}
}

func (h *RevisionHandler) ListRevisions(c *gin.Context) {
	records, err := h.service.ListRevisions(c.Request.Context())
	if err != nil {
		errorResponse(c, statusFor(err), err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"revisions": records,
		"active":    revision.Active(records),
	})
}

func (h *RevisionHandler) Activate(c *gin.Context) {
	strategy, err := revision.ParseStrategy(c.Query("validate"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}

	act, err := h.service.Activate(c.Request.Context(), c.Param("revision"), strategy)
	if err != nil {
		if act != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error(), "activation": act})
			logger.Log.Error().Err(err).Msg("activation request failed")
			return
		}
		errorResponse(c, statusFor(err), err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activation": act})
}

func (h *RevisionHandler) History(c *gin.Context) {
	limit := 20
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && v > 0 {
		limit = v
	}

	entries, err := h.service.History(c.Request.Context(), limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activations": entries})
}

func statusFor(err error) int {
	var se *storage.StoreError
	switch {
	case errors.Is(err, revision.ErrRevisionNotFound):
		return http.StatusNotFound
	case errors.As(err, &se):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(c *gin.Context, statusCode int, err error) {
	logger.Log.Error().Err(err).Int("status", statusCode).Msg("request failed")
	c.JSON(statusCode, gin.H{"error": err.Error()})
}
