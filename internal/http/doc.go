// Package http provides the JSON API for circles, their members and the shared
// weekly calendar.
//
// The router exposes the following endpoints:
//   - GET /health: storage reachability. Responds {"status":"ok"} or 503.
//   - POST /circles, GET /circles/{id}, PUT /circles/{id}: create a circle
//     together with its host member ({"name","host_name","host_timezone"}),
//     read it, rename it ({"name"}).
//   - GET|POST /circles/{id}/members, PUT|DELETE /circles/{id}/members/{memberID},
//     POST /circles/{id}/members/{memberID}/toggle and
//     POST /circles/{id}/members/active ({"active"}): member management using
//     the memberDTO payload defined in member_handler.go.
//   - GET|POST /circles/{id}/events, POST /circles/{id}/events/batch,
//     PUT|DELETE /circles/{id}/events/{eventID}: weekly events using eventDTO.
//     Writes answer with advisory conflicts against the owner's other events.
//   - GET /circles/{id}/week?date=&tz=: the laid-out week grid.
//   - GET /circles/{id}/free-slots?date=&tz=&min=: common free time.
//   - GET /circles/{id}/occurrences?from=&to=&tz=: concrete instants.
//   - GET /circles/{id}/calendar.ics: iCalendar feed with ETag and
//     If-None-Match support.
//
// Error bodies carry a translated message picked by the Locale middleware from
// ?lang= or Accept-Language; validation failures add per-field messages.
package http
