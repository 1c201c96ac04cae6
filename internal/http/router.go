package http

import (
	"net/http"
)

type RouterConfig struct {
	Circles    *CircleHandler
	Members    *MemberHandler
	Events     *EventHandler
	Calendar   *CalendarHandler
	Health     *HealthHandler
	Middleware []func(http.Handler) http.Handler
}

// NewRouter registers every configured handler on a ServeMux. Path wildcards
// are read by the handlers through Request.PathValue. Unknown methods on a
// known path answer 405 with an Allow header.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Health != nil {
		mux.HandleFunc("GET /health", cfg.Health.Check)
	}

	if cfg.Circles != nil {
		mux.HandleFunc("POST /circles", cfg.Circles.Create)
		mux.HandleFunc("GET /circles/{circleID}", cfg.Circles.Get)
		mux.HandleFunc("PUT /circles/{circleID}", cfg.Circles.Rename)
	}

	if cfg.Members != nil {
		mux.HandleFunc("GET /circles/{circleID}/members", cfg.Members.List)
		mux.HandleFunc("POST /circles/{circleID}/members", cfg.Members.Create)
		mux.HandleFunc("POST /circles/{circleID}/members/active", cfg.Members.SetActive)
		mux.HandleFunc("PUT /circles/{circleID}/members/{memberID}", cfg.Members.Update)
		mux.HandleFunc("DELETE /circles/{circleID}/members/{memberID}", cfg.Members.Delete)
		mux.HandleFunc("POST /circles/{circleID}/members/{memberID}/toggle", cfg.Members.Toggle)
	}

	if cfg.Events != nil {
		mux.HandleFunc("GET /circles/{circleID}/events", cfg.Events.List)
		mux.HandleFunc("POST /circles/{circleID}/events", cfg.Events.Create)
		mux.HandleFunc("POST /circles/{circleID}/events/batch", cfg.Events.Batch)
		mux.HandleFunc("PUT /circles/{circleID}/events/{eventID}", cfg.Events.Update)
		mux.HandleFunc("DELETE /circles/{circleID}/events/{eventID}", cfg.Events.Delete)
	}

	if cfg.Calendar != nil {
		mux.HandleFunc("GET /circles/{circleID}/week", cfg.Calendar.Week)
		mux.HandleFunc("GET /circles/{circleID}/free-slots", cfg.Calendar.FreeSlots)
		mux.HandleFunc("GET /circles/{circleID}/occurrences", cfg.Calendar.Occurrences)
		mux.HandleFunc("GET /circles/{circleID}/calendar.ics", cfg.Calendar.Calendar)
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}
