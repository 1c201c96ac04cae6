package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/example/synccircle/internal/application"
	"github.com/example/synccircle/internal/i18n"
)

// Message IDs for request-level failures detected before a service is called.
const (
	msgBadRequestBody     = "ErrorBadRequestBody"
	msgInvalidCircleID    = "ErrorInvalidCircleID"
	msgInvalidMemberID    = "ErrorInvalidMemberID"
	msgInvalidEventID     = "ErrorInvalidEventID"
	msgInvalidDate        = "ErrorInvalidDate"
	msgInvalidTimezone    = "ErrorInvalidTimezone"
	msgInvalidRange       = "ErrorInvalidRange"
	msgInvalidMinDuration = "ErrorInvalidMinDuration"
)

var validationMessageIDs = map[string]string{
	application.MsgNameRequired:        "ValidationNameRequired",
	application.MsgNameTooLong:         "ValidationNameTooLong",
	application.MsgTitleTooLong:        "ValidationTitleTooLong",
	application.MsgTimezoneInvalid:     "ValidationTimezoneInvalid",
	application.MsgColorInvalid:        "ValidationColorInvalid",
	application.MsgDayOutOfRange:       "ValidationDayOutOfRange",
	application.MsgStartTimeOutOfRange: "ValidationStartTimeOutOfRange",
	application.MsgDurationPositive:    "ValidationDurationPositive",
	application.MsgDurationTooLong:     "ValidationDurationTooLong",
	application.MsgDateInvalid:         "ValidationDateInvalid",
	application.MsgDateOrder:           "ValidationDateOrder",
	application.MsgMemberRequired:      "ValidationMemberRequired",
	application.MsgMemberUnknown:       "ValidationMemberUnknown",
	application.MsgEventsRequired:      "ValidationEventsRequired",
	application.MsgNothingToUpdate:     "ValidationNothingToUpdate",
}

var fallbackBundle = sync.OnceValue(i18n.MustNewBundle)

// requestError is a client mistake caught by a handler. MessageID names the
// translation shown to the caller.
type requestError struct {
	MessageID string
	Data      map[string]any
}

func (e requestError) Error() string {
	return e.MessageID
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeBadRequest answers 400 with the translated messageID.
func (r responder) writeBadRequest(ctx context.Context, w http.ResponseWriter, reqErr requestError) {
	r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
		ErrorCode: "BAD_REQUEST",
		Message:   r.localizer(ctx).TData(reqErr.MessageID, reqErr.Data),
	})
}

// writeStatus answers with the generic translated text for status.
func (r responder) writeStatus(ctx context.Context, w http.ResponseWriter, status int, code string) {
	r.writeJSON(ctx, w, status, errorResponse{
		ErrorCode: code,
		Message:   r.localizer(ctx).T(statusMessageID(status)),
	})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var reqErr requestError
	var vErr *application.ValidationError

	switch {
	case err == nil:
		r.writeStatus(ctx, w, http.StatusInternalServerError, "INTERNAL")
	case errors.As(err, &reqErr):
		r.writeBadRequest(ctx, w, reqErr)
	case errors.Is(err, application.ErrNotFound):
		r.writeStatus(ctx, w, http.StatusNotFound, "NOT_FOUND")
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeStatus(ctx, w, http.StatusConflict, "ALREADY_EXISTS")
	case errors.As(err, &vErr):
		localizer := r.localizer(ctx)
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   localizer.T(statusMessageID(http.StatusUnprocessableEntity)),
			Errors:    localizeValidationErrors(localizer, vErr),
		})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err, "error_kind", application.ErrorKind(err))
		r.writeStatus(ctx, w, http.StatusInternalServerError, "INTERNAL")
	}
}

func (r responder) localizer(ctx context.Context) *i18n.Localizer {
	if localizer, ok := LocalizerFromContext(ctx); ok {
		return localizer
	}
	return fallbackBundle().Localizer("en")
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusMessageID(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "StatusBadRequest"
	case http.StatusNotFound:
		return "StatusNotFound"
	case http.StatusMethodNotAllowed:
		return "StatusMethodNotAllowed"
	case http.StatusConflict:
		return "StatusConflict"
	case http.StatusUnprocessableEntity:
		return "StatusUnprocessableEntity"
	default:
		return "StatusInternalServerError"
	}
}

func localizeValidationErrors(localizer *i18n.Localizer, vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		if id, ok := validationMessageIDs[msg]; ok {
			translated[field] = localizer.T(id)
			continue
		}
		translated[field] = msg
	}
	return translated
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
