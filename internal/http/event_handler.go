package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/synccircle/internal/application"
	"github.com/example/synccircle/internal/persistence"
	"github.com/example/synccircle/internal/scheduler"
)

type eventService interface {
	CreateEvent(ctx context.Context, params application.CreateEventParams) (application.EventResult, error)
	BatchAddEvents(ctx context.Context, params application.BatchAddEventsParams) ([]persistence.Event, error)
	UpdateEvent(ctx context.Context, params application.UpdateEventParams) (application.EventResult, error)
	DeleteEvent(ctx context.Context, circleID, eventID string) error
	ListEvents(ctx context.Context, circleID string) ([]persistence.Event, error)
}

type EventHandler struct {
	service   eventService
	responder responder
	logger    *slog.Logger
}

func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	return &EventHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	circleID, err := pathID(r, "circleID", msgInvalidCircleID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	events, err := h.service.ListEvents(r.Context(), circleID)
	if err != nil {
		h.log(r.Context(), "List", "circle_id", circleID).WarnContext(r.Context(), "event listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventListResponse{Events: toEventDTOs(events)})
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	circleID, err := pathID(r, "circleID", msgInvalidCircleID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Create", "circle_id", circleID)

	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.WarnContext(r.Context(), "failed to decode event request", "error", err, "error_kind", "bad_request")
		h.responder.writeBadRequest(r.Context(), w, requestError{MessageID: msgBadRequestBody})
		return
	}

	result, err := h.service.CreateEvent(r.Context(), application.CreateEventParams{
		CircleID: circleID,
		Input:    req.toInput(req.UserID),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "event creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("event_id", result.Event.ID).InfoContext(r.Context(), "event created", "conflicts", len(result.Conflicts))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toEventResponse(result))
}

func (h *EventHandler) Batch(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	circleID, err := pathID(r, "circleID", msgInvalidCircleID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Batch", "circle_id", circleID)

	var req batchEventsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.WarnContext(r.Context(), "failed to decode batch request", "error", err, "error_kind", "bad_request")
		h.responder.writeBadRequest(r.Context(), w, requestError{MessageID: msgBadRequestBody})
		return
	}

	inputs := make([]application.EventInput, 0, len(req.Events))
	for _, event := range req.Events {
		inputs = append(inputs, event.toInput(req.UserID))
	}

	created, err := h.service.BatchAddEvents(r.Context(), application.BatchAddEventsParams{
		CircleID: circleID,
		OwnerID:  req.UserID,
		Timezone: req.Timezone,
		Events:   inputs,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "batch import failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "events imported", "user_id", req.UserID, "count", len(created))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, eventListResponse{Events: toEventDTOs(created)})
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	circleID, eventID, err := eventPath(r)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Update", "circle_id", circleID, "event_id", eventID)

	var req updateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.WarnContext(r.Context(), "failed to decode event update", "error", err, "error_kind", "bad_request")
		h.responder.writeBadRequest(r.Context(), w, requestError{MessageID: msgBadRequestBody})
		return
	}

	result, err := h.service.UpdateEvent(r.Context(), application.UpdateEventParams{
		CircleID:  circleID,
		EventID:   eventID,
		Title:     req.Title,
		Day:       req.Day,
		StartTime: req.StartTime,
		Duration:  req.Duration,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "event update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "event updated", "conflicts", len(result.Conflicts))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventResponse(result))
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	circleID, eventID, err := eventPath(r)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Delete", "circle_id", circleID, "event_id", eventID)
	if err := h.service.DeleteEvent(r.Context(), circleID, eventID); err != nil {
		logger.WarnContext(r.Context(), "event deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "event deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func eventPath(r *http.Request) (string, string, error) {
	circleID, err := pathID(r, "circleID", msgInvalidCircleID)
	if err != nil {
		return "", "", err
	}
	eventID, err := pathID(r, "eventID", msgInvalidEventID)
	if err != nil {
		return "", "", err
	}
	return circleID, eventID, nil
}

type eventRequest struct {
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	Day       int    `json:"day"`
	StartTime int    `json:"start_time"`
	Duration  int    `json:"duration"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// toInput converts the request. Batch entries inherit owner from the
// enclosing request.
func (req eventRequest) toInput(owner string) application.EventInput {
	return application.EventInput{
		UserID:    owner,
		Title:     req.Title,
		Day:       req.Day,
		StartTime: req.StartTime,
		Duration:  req.Duration,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
}

type batchEventsRequest struct {
	UserID   string         `json:"user_id"`
	Timezone string         `json:"timezone"`
	Events   []eventRequest `json:"events"`
}

type updateEventRequest struct {
	Title     *string `json:"title"`
	Day       *int    `json:"day"`
	StartTime *int    `json:"start_time"`
	Duration  *int    `json:"duration"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

type eventDTO struct {
	ID        string    `json:"id"`
	CircleID  string    `json:"circle_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Day       int       `json:"day"`
	StartTime int       `json:"start_time"`
	Duration  int       `json:"duration"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type conflictDTO struct {
	EventID string `json:"event_id"`
	Title   string `json:"title"`
	Day     int    `json:"day"`
	Minutes int    `json:"minutes"`
}

type eventResponse struct {
	Event     eventDTO      `json:"event"`
	Conflicts []conflictDTO `json:"conflicts"`
}

type eventListResponse struct {
	Events []eventDTO `json:"events"`
}

func toEventDTO(event persistence.Event) eventDTO {
	return eventDTO{
		ID:        event.ID,
		CircleID:  event.CircleID,
		UserID:    event.UserID,
		Title:     event.Title,
		Day:       event.Day,
		StartTime: event.StartTime,
		Duration:  event.Duration,
		StartDate: event.StartDate,
		EndDate:   event.EndDate,
		CreatedAt: event.CreatedAt,
		UpdatedAt: event.UpdatedAt,
	}
}

func toEventDTOs(events []persistence.Event) []eventDTO {
	dtos := make([]eventDTO, 0, len(events))
	for _, event := range events {
		dtos = append(dtos, toEventDTO(event))
	}
	return dtos
}

func toEventResponse(result application.EventResult) eventResponse {
	return eventResponse{Event: toEventDTO(result.Event), Conflicts: toConflictDTOs(result.Conflicts)}
}

func toConflictDTOs(conflicts []scheduler.Conflict) []conflictDTO {
	dtos := make([]conflictDTO, 0, len(conflicts))
	for _, conflict := range conflicts {
		dtos = append(dtos, conflictDTO{
			EventID: conflict.WithEventID,
			Title:   conflict.Title,
			Day:     conflict.Day,
			Minutes: conflict.Minutes,
		})
	}
	return dtos
}
