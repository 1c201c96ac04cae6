package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/synccircle/internal/application"
	"github.com/example/synccircle/internal/i18n"
)

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	var sawLogger bool
	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLogger = LoggerFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/circles/c1/week", nil))

	if !sawLogger {
		t.Fatal("expected request-scoped logger in context")
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rec.Code)
	}

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected start and completion records, got %q", buf.String())
	}

	var completed map[string]any
	if err := json.Unmarshal(lines[1], &completed); err != nil {
		t.Fatalf("completion record is not JSON: %v", err)
	}
	if completed["msg"] != "request completed" || completed["path"] != "/circles/c1/week" {
		t.Fatalf("unexpected completion record %v", completed)
	}
	if completed["status"] != float64(http.StatusTeapot) || completed["request_id"] != float64(1) {
		t.Fatalf("expected status and request id in %v", completed)
	}
}

func TestLocale(t *testing.T) {
	t.Parallel()

	bundle := i18n.MustNewBundle()
	tests := []struct {
		name   string
		target string
		header string
		want   string
	}{
		{name: "defaults to english", target: "/", want: "en"},
		{name: "reads accept-language", target: "/", header: "ja,en;q=0.5", want: "ja"},
		{name: "query wins over header", target: "/?lang=en", header: "ja", want: "en"},
		{name: "unsupported falls back", target: "/?lang=fr", want: "en"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var got string
			handler := Locale(bundle)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				localizer, ok := LocalizerFromContext(r.Context())
				if !ok {
					t.Error("expected localizer in context")
					return
				}
				got = localizer.Language()
			}))

			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Accept-Language", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if got != tc.want {
				t.Fatalf("expected language %q, got %q", tc.want, got)
			}
			if header := rec.Header().Get("Content-Language"); header != tc.want {
				t.Fatalf("expected Content-Language %q, got %q", tc.want, header)
			}
		})
	}
}

func TestResponderHandleServiceError(t *testing.T) {
	t.Parallel()

	vErr := &application.ValidationError{FieldErrors: map[string]string{
		"name":  application.MsgNameRequired,
		"extra": "something custom",
	}}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "not found", err: fmt.Errorf("load: %w", application.ErrNotFound), wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{name: "already exists", err: application.ErrAlreadyExists, wantStatus: http.StatusConflict, wantCode: "ALREADY_EXISTS"},
		{name: "validation", err: vErr, wantStatus: http.StatusUnprocessableEntity, wantCode: "VALIDATION_FAILED"},
		{name: "request error", err: requestError{MessageID: msgInvalidDate}, wantStatus: http.StatusBadRequest, wantCode: "BAD_REQUEST"},
		{name: "unexpected", err: errors.New("disk on fire"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL"},
	}

	r := newResponder(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			r.handleServiceError(req.Context(), rec, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.ErrorCode != tc.wantCode {
				t.Fatalf("expected code %s, got %s", tc.wantCode, body.ErrorCode)
			}
			if body.Message == "" || strings.Contains(body.Message, "disk on fire") {
				t.Fatalf("unexpected message %q", body.Message)
			}
		})
	}

	t.Run("translates field messages", func(t *testing.T) {
		t.Parallel()

		localizer := i18n.MustNewBundle().Localizer("ja")
		translated := localizeValidationErrors(localizer, vErr)
		if translated["name"] != "名前は必須です。" {
			t.Fatalf("expected japanese name message, got %q", translated["name"])
		}
		if translated["extra"] != "something custom" {
			t.Fatalf("expected unknown message to pass through, got %q", translated["extra"])
		}
	})
}

func TestEveryValidationMessageHasTranslations(t *testing.T) {
	t.Parallel()

	bundle := i18n.MustNewBundle()
	for _, lang := range []string{"en", "ja"} {
		localizer := bundle.Localizer(lang)
		for msg, id := range validationMessageIDs {
			if !localizer.Has(id) {
				t.Errorf("%s: missing %s for %q", lang, id, msg)
			}
		}
		for _, id := range []string{msgBadRequestBody, msgInvalidCircleID, msgInvalidMemberID, msgInvalidEventID, msgInvalidDate, msgInvalidTimezone, msgInvalidRange, msgInvalidMinDuration} {
			if !localizer.Has(id) {
				t.Errorf("%s: missing %s", lang, id)
			}
		}
	}
}
