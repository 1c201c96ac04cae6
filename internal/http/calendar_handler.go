package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/synccircle/internal/application"
	"github.com/example/synccircle/internal/ical"
	"github.com/example/synccircle/internal/layout"
	"github.com/example/synccircle/internal/recurrence"
)

type calendarService interface {
	WeekView(ctx context.Context, params application.WeekViewParams) (layout.Week, error)
	FreeSlots(ctx context.Context, params application.FreeSlotsParams) (application.FreeSlots, error)
	Occurrences(ctx context.Context, params application.OccurrencesParams) ([]recurrence.Occurrence, error)
	ExportICS(ctx context.Context, circleID string) (application.CalendarExport, error)
}

// CalendarHandler serves the read-only views of a circle's schedule.
type CalendarHandler struct {
	service   calendarService
	responder responder
	logger    *slog.Logger
}

func NewCalendarHandler(service calendarService, logger *slog.Logger) *CalendarHandler {
	base := defaultLogger(logger)
	return &CalendarHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CalendarHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CalendarHandler", operation, attrs...)
}

// Week handles GET /circles/{id}/week?date=&tz=.
func (h *CalendarHandler) Week(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params, err := weekParams(r)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	week, err := h.service.WeekView(r.Context(), params)
	if err != nil {
		h.log(r.Context(), "Week", "circle_id", params.CircleID).WarnContext(r.Context(), "week view failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toWeekResponse(week))
}

// FreeSlots handles GET /circles/{id}/free-slots?date=&tz=&min=.
func (h *CalendarHandler) FreeSlots(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params, err := weekParams(r)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	minDuration := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("min")); raw != "" {
		minDuration, err = strconv.Atoi(raw)
		if err != nil || minDuration <= 0 {
			h.responder.writeBadRequest(r.Context(), w, requestError{MessageID: msgInvalidMinDuration})
			return
		}
	}

	result, err := h.service.FreeSlots(r.Context(), application.FreeSlotsParams{
		WeekViewParams: params,
		MinDuration:    minDuration,
	})
	if err != nil {
		h.log(r.Context(), "FreeSlots", "circle_id", params.CircleID).WarnContext(r.Context(), "free slot search failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	slots := make([]slotDTO, 0, len(result.Slots))
	for _, slot := range result.Slots {
		slots = append(slots, slotDTO{
			Day:      slot.Day,
			Date:     layout.FormatDate(result.WeekStart.AddDate(0, 0, slot.Day)),
			Start:    slot.Start,
			End:      slot.End,
			Duration: slot.Duration(),
			Label:    clockLabel(slot.Start) + "-" + clockLabel(slot.End),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, freeSlotsResponse{
		WeekStart:      layout.FormatDate(result.WeekStart),
		ViewerTimezone: result.ViewerTimezone,
		Slots:          slots,
	})
}

// Occurrences handles GET /circles/{id}/occurrences?from=&to=&tz=. Both dates
// are inclusive and read in tz.
func (h *CalendarHandler) Occurrences(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	circleID, err := pathID(r, "circleID", msgInvalidCircleID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	timezone, loc, err := queryTimezone(r)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if loc == nil {
		timezone, loc = "UTC", time.UTC
	}
	from, err := queryDate(r, "from")
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if from.IsZero() || to.IsZero() {
		h.responder.writeBadRequest(r.Context(), w, requestError{MessageID: msgInvalidRange})
		return
	}

	rangeStart := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	rangeEnd := time.Date(to.Year(), to.Month(), to.Day()+1, 0, 0, 0, 0, loc).Add(-time.Second)

	occurrences, err := h.service.Occurrences(r.Context(), application.OccurrencesParams{
		CircleID: circleID,
		From:     rangeStart,
		To:       rangeEnd,
		Timezone: timezone,
	})
	if err != nil {
		h.log(r.Context(), "Occurrences", "circle_id", circleID).WarnContext(r.Context(), "occurrence expansion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]occurrenceDTO, 0, len(occurrences))
	for _, occurrence := range occurrences {
		dtos = append(dtos, occurrenceDTO{
			EventID: occurrence.EventID,
			UserID:  occurrence.UserID,
			Title:   occurrence.Title,
			Start:   occurrence.Start,
			End:     occurrence.End,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, occurrencesResponse{Timezone: timezone, Occurrences: dtos})
}

// Calendar handles GET /circles/{id}/calendar.ics. A matching If-None-Match
// answers 304 without a body.
func (h *CalendarHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	circleID, err := pathID(r, "circleID", msgInvalidCircleID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Calendar", "circle_id", circleID)
	export, err := h.service.ExportICS(r.Context(), circleID)
	if err != nil {
		logger.WarnContext(r.Context(), "calendar export failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("ETag", export.ETag)
	w.Header().Set("Cache-Control", "no-cache")
	if !export.Stamp.IsZero() {
		w.Header().Set("Last-Modified", export.Stamp.UTC().Format(http.TimeFormat))
	}
	if ical.MatchesETag(r.Header.Get("If-None-Match"), export.ETag) {
		logger.DebugContext(r.Context(), "calendar not modified")
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+circleID+`.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(export.Body); err != nil {
		logger.ErrorContext(r.Context(), "failed to write calendar", "error", err)
	}
}

func weekParams(r *http.Request) (application.WeekViewParams, error) {
	circleID, err := pathID(r, "circleID", msgInvalidCircleID)
	if err != nil {
		return application.WeekViewParams{}, err
	}
	date, err := queryDate(r, "date")
	if err != nil {
		return application.WeekViewParams{}, err
	}
	timezone, _, err := queryTimezone(r)
	if err != nil {
		return application.WeekViewParams{}, err
	}
	return application.WeekViewParams{CircleID: circleID, Date: date, ViewerTimezone: timezone}, nil
}

func clockLabel(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

type weekResponse struct {
	ViewedDate     string   `json:"viewed_date"`
	WeekStart      string   `json:"week_start"`
	ViewerTimezone string   `json:"viewer_timezone"`
	Days           []dayDTO `json:"days"`
}

type dayDTO struct {
	Index        int        `json:"index"`
	Date         string     `json:"date"`
	TotalColumns int        `json:"total_columns"`
	Blocks       []blockDTO `json:"blocks"`
}

type blockDTO struct {
	EventID      string  `json:"event_id"`
	UserID       string  `json:"user_id"`
	Title        string  `json:"title"`
	OwnerName    string  `json:"owner_name"`
	OwnerColor   string  `json:"owner_color"`
	OwnerAvatar  string  `json:"owner_avatar,omitempty"`
	StartTime    int     `json:"start_time"`
	DisplayStart int     `json:"display_start"`
	Duration     int     `json:"duration"`
	Column       int     `json:"column"`
	TotalColumns int     `json:"total_columns"`
	TopPx        float64 `json:"top_px"`
	HeightPx     float64 `json:"height_px"`
	LeftPercent  float64 `json:"left_percent"`
	WidthPercent float64 `json:"width_percent"`
}

type slotDTO struct {
	Day      int    `json:"day"`
	Date     string `json:"date"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Duration int    `json:"duration"`
	Label    string `json:"label"`
}

type freeSlotsResponse struct {
	WeekStart      string    `json:"week_start"`
	ViewerTimezone string    `json:"viewer_timezone"`
	Slots          []slotDTO `json:"slots"`
}

type occurrenceDTO struct {
	EventID string    `json:"event_id"`
	UserID  string    `json:"user_id"`
	Title   string    `json:"title"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

type occurrencesResponse struct {
	Timezone    string          `json:"timezone"`
	Occurrences []occurrenceDTO `json:"occurrences"`
}

func toWeekResponse(week layout.Week) weekResponse {
	days := make([]dayDTO, 0, len(week.Days))
	for _, day := range week.Days {
		blocks := make([]blockDTO, 0, len(day.Blocks))
		for _, block := range day.Blocks {
			blocks = append(blocks, blockDTO{
				EventID:      block.Event.ID,
				UserID:       block.Event.UserID,
				Title:        block.Event.Title,
				OwnerName:    block.OwnerName,
				OwnerColor:   block.OwnerColor,
				OwnerAvatar:  block.OwnerAvatar,
				StartTime:    block.Event.StartTime,
				DisplayStart: block.DisplayStart,
				Duration:     block.Duration,
				Column:       block.Column,
				TotalColumns: block.TotalColumns,
				TopPx:        block.TopPx,
				HeightPx:     block.HeightPx,
				LeftPercent:  block.LeftPercent(),
				WidthPercent: block.WidthPercent(),
			})
		}
		days = append(days, dayDTO{
			Index:        day.Index,
			Date:         layout.FormatDate(day.Date),
			TotalColumns: day.TotalColumns,
			Blocks:       blocks,
		})
	}
	return weekResponse{
		ViewedDate:     layout.FormatDate(week.ViewedDate),
		WeekStart:      layout.FormatDate(week.WeekStart),
		ViewerTimezone: week.ViewerTimezone,
		Days:           days,
	}
}
