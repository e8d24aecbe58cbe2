package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/udayshankar95/central-farming-tool/internal/apperrors"
	"github.com/udayshankar95/central-farming-tool/internal/priority"
	"github.com/udayshankar95/central-farming-tool/internal/usecase"
	"github.com/udayshankar95/central-farming-tool/pkg/logger"
)

func (s *Server) handleListBoard(c *gin.Context) {
	filter, err := boardFilterFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	items, err := s.services.Board.ListBoard(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// boardFilterFromQuery maps query params onto the in-memory board filter.
// buckets is a comma-separated list of bucket keys.
func boardFilterFromQuery(c *gin.Context) (usecase.BoardFilter, error) {
	filter := usecase.BoardFilter{
		SegmentTag: strings.TrimSpace(c.Query("segment_tag")),
		PartnerID:  strings.TrimSpace(c.Query("partner_id")),
	}

	raw := strings.TrimSpace(c.Query("buckets"))
	if raw == "" {
		return filter, nil
	}
	for _, part := range strings.Split(raw, ",") {
		b := priority.Bucket(strings.TrimSpace(part))
		if b == "" {
			continue
		}
		if !priority.IsValid(b) {
			return filter, fmt.Errorf("%w: unknown bucket %q", apperrors.ErrBadRequest, string(b))
		}
		filter.Buckets = append(filter.Buckets, b)
	}
	return filter, nil
}

func (s *Server) handleEnsureItems(c *gin.Context) {
	created, err := s.services.Board.EnsureItems(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}

func (s *Server) handleActivateItems(c *gin.Context) {
	activated, err := s.services.Board.ActivateItems(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activated": activated})
}

func (s *Server) handleResetItems(c *gin.Context) {
	reset, err := s.services.Board.ResetItems(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": reset})
}

type proposeTransitionRequest struct {
	NewStatus string `json:"new_status" binding:"required"`
}

func (s *Server) handleProposeTransition(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid work item id"})
		return
	}

	var req proposeTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "new_status is required"})
		return
	}

	proposal, err := s.services.Lifecycle.ProposeTransition(c.Request.Context(), itemID, req.NewStatus)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}

func (s *Server) handleItemHistory(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid work item id"})
		return
	}

	entries, err := s.services.Lifecycle.ItemHistory(c.Request.Context(), itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

func (s *Server) handleCommitTransition(c *gin.Context) {
	var req usecase.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transition payload"})
		return
	}

	result, err := s.services.Lifecycle.CommitTransition(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleUploadPartners(c *gin.Context) {
	s.handleUpload(c, s.services.Ingest.IngestPartners)
}

func (s *Server) handleUploadMetrics(c *gin.Context) {
	s.handleUpload(c, s.services.Ingest.IngestMetrics)
}

func (s *Server) handleUpload(c *gin.Context, ingest func(ctx context.Context, r io.Reader) (*usecase.IngestReport, error)) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	report, err := ingest(c.Request.Context(), file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handlePortfolio(c *gin.Context) {
	summary, err := s.services.Portfolio.Summarize(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleListAgents(c *gin.Context) {
	agents, err := s.services.Agents.ListFarmers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": agents, "count": len(agents)})
}

// respondError maps application errors onto HTTP status codes. Internal errors
// are logged with the request context and returned without detail.
func respondError(c *gin.Context, err error) {
	status := statusFromError(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFromError(err error) int {
	switch {
	case apperrors.IsUnauthorizedError(err):
		return http.StatusUnauthorized
	case apperrors.IsNotFoundError(err):
		return http.StatusNotFound
	case apperrors.IsValidationError(err):
		return http.StatusUnprocessableEntity
	case apperrors.IsBadRequestError(err):
		return http.StatusBadRequest
	case apperrors.IsDuplicateError(err) || apperrors.IsConflictError(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
