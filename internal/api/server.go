package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"terreiro_sync/internal/domain"
	"terreiro_sync/internal/service"
)

// ContentSyncer runs one content reconciliation pass on demand.
type ContentSyncer interface {
	Reconcile(ctx context.Context) (*domain.ReconcileStats, error)
}

// SubscriberSyncer exposes the retry-ledger operations the admin needs.
type SubscriberSyncer interface {
	Sweep(ctx context.Context) (*domain.RetryStats, error)
	Metrics(ctx context.Context) (*domain.SyncMetrics, error)
	MarkProcessedManually(ctx context.Context, id int64) error
}

// Server is the on-demand entry point. Both its triggers delegate to the
// same services the scheduler runs; only the reporting differs.
type Server struct {
	content ContentSyncer
	retries SubscriberSyncer
	logger  *slog.Logger
}

// syncResponse is the envelope every trigger returns.
type syncResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func NewServer(content ContentSyncer, retries SubscriberSyncer, logger *slog.Logger) *Server {
	return &Server{
		content: content,
		retries: retries,
		logger:  logger.With("component", "api"),
	}
}

// Router constructs a Gin engine with registered routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.handleHealth)

	g := r.Group("/api")
	g.POST("/sync", s.handleSync)
	g.POST("/retries/sweep", s.handleSweep)
	g.GET("/metrics", s.handleMetrics)
	g.POST("/failed-syncs/:id/process", s.handleMarkProcessed)

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// handleSync triggers a content reconciliation and waits for it, so the
// caller gets a real outcome rather than an acknowledgement.
func (s *Server) handleSync(c *gin.Context) {
	stats, err := s.content.Reconcile(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			c.JSON(http.StatusConflict, syncResponse{Success: false, Error: err.Error()})
			return
		}
		s.logger.Error("manual content sync failed", "error", err)
		c.JSON(http.StatusInternalServerError, syncResponse{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, syncResponse{
		Success: true,
		Message: fmt.Sprintf("synced %d articles, removed %d orphans (%d errors)",
			stats.Written, stats.Removed, stats.Errors),
	})
}

func (s *Server) handleSweep(c *gin.Context) {
	stats, err := s.retries.Sweep(c.Request.Context())
	if err != nil {
		s.logger.Error("manual retry sweep failed", "error", err)
		c.JSON(http.StatusInternalServerError, syncResponse{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, syncResponse{
		Success: true,
		Message: fmt.Sprintf("swept %d records, recovered %d, failed %d",
			stats.Scanned, stats.Recovered, stats.Failed),
	})
}

func (s *Server) handleMetrics(c *gin.Context) {
	metrics, err := s.retries.Metrics(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to aggregate sync metrics", "error", err)
		c.JSON(http.StatusInternalServerError, syncResponse{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, metrics)
}

// handleMarkProcessed is the operator override: it moves a ledger row to
// its terminal state regardless of retry count.
func (s *Server) handleMarkProcessed(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, syncResponse{Success: false, Error: "invalid id"})
		return
	}

	if err := s.retries.MarkProcessedManually(c.Request.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, syncResponse{Success: false, Error: "failed sync not found"})
			return
		}
		s.logger.Error("failed to mark record processed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, syncResponse{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, syncResponse{Success: true, Message: "marked processed"})
}
