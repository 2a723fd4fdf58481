package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/helixops/taskmesh/internal/application/bus"
	"github.com/helixops/taskmesh/internal/application/routing"
	"github.com/helixops/taskmesh/internal/domain"
)

// TaskRequest represents a task execution or routing request
type TaskRequest struct {
	Task    domain.Task `json:"task" binding:"required"`
	Workers int         `json:"workers,omitempty"`
}

// RouteResponse represents a routing decision
type RouteResponse struct {
	Workers []string `json:"workers"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"checks": gin.H{
			"coordinator": "ok",
		},
	})
}

// handleExecuteTask handles coordinated task execution
func (s *Server) handleExecuteTask(c *gin.Context) {
	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Error("invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	result, err := s.coordinator.ExecuteCoordinatedTask(c.Request.Context(), req.Task)
	if err != nil {
		s.logger.Error("task execution failed",
			zap.String("task_type", req.Task.Type),
			zap.Error(err))
		status := http.StatusUnprocessableEntity
		if errors.Is(err, routing.ErrNoCandidateWorkers) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, ErrorResponse{
			Error: ErrorDetail{Code: "EXECUTION_FAILED", Message: err.Error()},
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleRouteTask handles routing without execution
func (s *Server) handleRouteTask(c *gin.Context) {
	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	var workers []string
	var err error
	if req.Workers > 1 {
		workers, err = s.coordinator.RouteTaskToMultiple(req.Task, req.Workers)
	} else {
		var one string
		one, err = s.coordinator.RouteTask(req.Task)
		workers = []string{one}
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: ErrorDetail{Code: "NO_CANDIDATES", Message: err.Error()},
		})
		return
	}

	c.JSON(http.StatusOK, RouteResponse{Workers: workers})
}

// handleListWorkers handles listing registered workers
func (s *Server) handleListWorkers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"workers": s.coordinator.WorkerStates(),
	})
}

// handleRegisterWorker handles worker registration
func (s *Server) handleRegisterWorker(c *gin.Context) {
	workerID := c.Param("id")

	if ok := s.coordinator.RegisterWorker(c.Request.Context(), workerID); !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{Code: "REGISTRATION_FAILED", Message: "unknown worker: " + workerID},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"worker_id": workerID, "registered": true})
}

// handleUnregisterWorker handles worker deactivation
func (s *Server) handleUnregisterWorker(c *gin.Context) {
	workerID := c.Param("id")

	ok := s.coordinator.UnregisterWorker(c.Request.Context(), workerID)
	c.JSON(http.StatusOK, gin.H{"worker_id": workerID, "unregistered": ok})
}

// handleChannelHistory handles bounded history retrieval
func (s *Server) handleChannelHistory(c *gin.Context) {
	name := c.Param("name")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: ErrorDetail{Code: "INVALID_LIMIT", Message: "limit must be an integer"},
			})
			return
		}
		limit = parsed
	}

	msgs, err := s.coordinator.History(name, limit)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, bus.ErrChannelNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{
			Error: ErrorDetail{Code: "HISTORY_FAILED", Message: err.Error()},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"channel": name, "messages": msgs})
}

// handleStats handles runtime and bus statistics
func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"runtime":  s.coordinator.RuntimeStatistics(),
		"channels": s.coordinator.BusStatistics(),
	})
}
