package ingestion

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	v1 "github.com/aevon-lab/knocklog/internal/api/v1"
	"github.com/aevon-lab/knocklog/internal/core/aggregation"
	httperr "github.com/aevon-lab/knocklog/internal/core/errors"
	"github.com/gin-gonic/gin"
)

const (
	msgReadBodyFailed  = "Failed to read request body"
	msgInvalidJSON     = "Invalid JSON body"
	msgPersistFailed   = "Event recorded but could not be persisted"
	msgResetPersist    = "Today reset but could not be persisted"
	msgUnknownCategory = "Unknown event type"
)

// AddEventRequest is the body of POST /v1/events.
type AddEventRequest struct {
	Type string `json:"type" binding:"required"`
}

// AddEventResponse is returned after a successful append.
type AddEventResponse struct {
	EventsTotal int                `json:"events_total"`
	Event       v1.EventRecord     `json:"event"`
	Today       aggregation.Counts `json:"today"`
}

// ResetTodayResponse is returned after today's records are removed.
type ResetTodayResponse struct {
	Removed   int `json:"removed"`
	Remaining int `json:"remaining"`
}

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// AddEventHandler handles POST /v1/events.
func (s *Service) AddEventHandler(c *gin.Context) {
	category, payloadSize, ingErr := s.parseCategory(c)
	if ingErr != nil {
		writeError(c, ingErr)
		return
	}

	slog.Info("Received Event", "type", category, "payload_size", payloadSize)

	events, err := s.store.Append(c.Request.Context(), category)
	if err != nil {
		writeError(c, persistError(err, msgPersistFailed, map[string]interface{}{
			"events_total": len(events),
		}))
		return
	}

	c.JSON(http.StatusCreated, AddEventResponse{
		EventsTotal: len(events),
		Event:       events[len(events)-1],
		Today:       s.calendar.CountToday(events, s.clock.Now()),
	})
}

// parseCategory reads the bounded request body and resolves its event type.
func (s *Service) parseCategory(c *gin.Context) (v1.Category, int, *ingestionError) {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return "", 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return "", len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_kb": maxBytes / 1024,
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	var req AddEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return "", len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}

	category, err := v1.ParseCategory(req.Type)
	if err != nil {
		slog.Warn("Unknown event type rejected", "type", req.Type)
		return "", len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidCategoryError,
			message:    msgUnknownCategory,
			details:    err.Error(),
		}
	}
	return category, len(bodyBytes), nil
}

// ListEventsHandler handles GET /v1/events.
func (s *Service) ListEventsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"events": s.store.Events()})
}

// ResetTodayHandler handles DELETE /v1/events/today.
func (s *Service) ResetTodayHandler(c *gin.Context) {
	remaining, removed, err := s.store.ResetToday(c.Request.Context(), s.clock.Now())
	if err != nil {
		writeError(c, persistError(err, msgResetPersist, map[string]interface{}{
			"removed":   removed,
			"remaining": len(remaining),
		}))
		return
	}

	c.JSON(http.StatusOK, ResetTodayResponse{Removed: removed, Remaining: len(remaining)})
}

// persistError maps a store error to its HTTP shape. A storage write failure
// means the change is live in memory but not durable.
func persistError(err error, message string, details map[string]interface{}) *ingestionError {
	var writeErr *httperr.StorageWriteError
	if errors.As(err, &writeErr) {
		slog.Error("Failed to persist event log", "key", writeErr.Key, "attempts", writeErr.Attempts, "error", writeErr.Err)
		details["attempts"] = writeErr.Attempts
		return &ingestionError{
			statusCode: http.StatusServiceUnavailable,
			errorType:  httperr.HttpStorageWriteError,
			message:    message,
			details:    details,
		}
	}

	slog.Error("Event store mutation failed", "error", err)
	return &ingestionError{
		statusCode: http.StatusInternalServerError,
		errorType:  httperr.HttpInternalError,
		message:    err.Error(),
	}
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
