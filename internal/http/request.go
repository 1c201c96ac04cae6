package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/example/synccircle/internal/layout"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()
	return json.NewDecoder(body).Decode(dst)
}

// pathID returns the trimmed path wildcard name, or a requestError with
// messageID when it is blank.
func pathID(r *http.Request, name, messageID string) (string, error) {
	id := strings.TrimSpace(r.PathValue(name))
	if id == "" {
		return "", requestError{MessageID: messageID}
	}
	return id, nil
}

// queryDate parses a YYYY-MM-DD query parameter. A missing value yields the
// zero time.
func queryDate(r *http.Request, name string) (time.Time, error) {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		return time.Time{}, nil
	}
	date, err := time.Parse(layout.DateLayout, value)
	if err != nil {
		return time.Time{}, requestError{MessageID: msgInvalidDate}
	}
	return date, nil
}

// queryTimezone returns the tz parameter after checking it names a zone.
func queryTimezone(r *http.Request) (string, *time.Location, error) {
	timezone := strings.TrimSpace(r.URL.Query().Get("tz"))
	if timezone == "" {
		return "", nil, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return "", nil, requestError{MessageID: msgInvalidTimezone, Data: map[string]any{"Timezone": timezone}}
	}
	return timezone, loc, nil
}
