package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/synccircle/internal/application"
	"github.com/example/synccircle/internal/persistence"
)

type circleService interface {
	CreateCircle(ctx context.Context, params application.CreateCircleParams) (application.CircleWithHost, error)
	GetCircle(ctx context.Context, circleID string) (persistence.Circle, error)
	RenameCircle(ctx context.Context, circleID, name string) (persistence.Circle, error)
}

type CircleHandler struct {
	service   circleService
	responder responder
	logger    *slog.Logger
}

func NewCircleHandler(service circleService, logger *slog.Logger) *CircleHandler {
	base := defaultLogger(logger)
	return &CircleHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CircleHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CircleHandler", operation, attrs...)
}

func (h *CircleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createCircleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode circle request", "error", err)
		h.responder.writeBadRequest(r.Context(), w, requestError{MessageID: msgBadRequestBody})
		return
	}

	result, err := h.service.CreateCircle(r.Context(), application.CreateCircleParams{
		Name:         req.Name,
		HostName:     req.HostName,
		HostTimezone: req.HostTimezone,
	})
	if err != nil {
		h.log(r.Context(), "Create").WarnContext(r.Context(), "circle creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "circle_id", result.Circle.ID).InfoContext(r.Context(), "circle created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, circleResponse{
		Circle: toCircleDTO(result.Circle),
		Host:   ptr(toMemberDTO(result.Host)),
	})
}

func (h *CircleHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	circleID, err := pathID(r, "circleID", msgInvalidCircleID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	circle, err := h.service.GetCircle(r.Context(), circleID)
	if err != nil {
		h.log(r.Context(), "Get", "circle_id", circleID).WarnContext(r.Context(), "circle lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, circleResponse{Circle: toCircleDTO(circle)})
}

func (h *CircleHandler) Rename(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	circleID, err := pathID(r, "circleID", msgInvalidCircleID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Rename", "circle_id", circleID)

	var req renameCircleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.WarnContext(r.Context(), "failed to decode rename request", "error", err, "error_kind", "bad_request")
		h.responder.writeBadRequest(r.Context(), w, requestError{MessageID: msgBadRequestBody})
		return
	}

	circle, err := h.service.RenameCircle(r.Context(), circleID, req.Name)
	if err != nil {
		logger.WarnContext(r.Context(), "circle rename failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "circle renamed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, circleResponse{Circle: toCircleDTO(circle)})
}

type createCircleRequest struct {
	Name         string `json:"name"`
	HostName     string `json:"host_name"`
	HostTimezone string `json:"host_timezone"`
}

type renameCircleRequest struct {
	Name string `json:"name"`
}

type circleDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type circleResponse struct {
	Circle circleDTO  `json:"circle"`
	Host   *memberDTO `json:"host,omitempty"`
}

func toCircleDTO(circle persistence.Circle) circleDTO {
	return circleDTO{
		ID:        circle.ID,
		Name:      circle.Name,
		CreatedAt: circle.CreatedAt,
		UpdatedAt: circle.UpdatedAt,
	}
}

func ptr[T any](v T) *T {
	return &v
}
