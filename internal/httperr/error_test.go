package httperr_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mkrupp/homecase-postboard/internal/httperr"
	"github.com/mkrupp/homecase-postboard/internal/infra/logging"
	"github.com/mkrupp/homecase-postboard/internal/validate"
)

func TestKindStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind httperr.Kind
		want int
	}{
		{httperr.KindBadRequest, http.StatusBadRequest},
		{httperr.KindUnauthorized, http.StatusUnauthorized},
		{httperr.KindForbidden, http.StatusForbidden},
		{httperr.KindNotFound, http.StatusNotFound},
		{httperr.KindConflict, http.StatusConflict},
		{httperr.KindUnprocessableEntity, http.StatusUnprocessableEntity},
		{httperr.KindPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{httperr.KindTooManyRequests, http.StatusTooManyRequests},
		{httperr.KindInternal, http.StatusInternalServerError},
		{httperr.Kind(99), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := tt.kind.Status(); got != tt.want {
			t.Errorf("Kind(%d).Status() = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestOr(t *testing.T) {
	t.Parallel()

	got, err := httperr.Or(5, true, httperr.KindNotFound, "missing")
	if err != nil || got != 5 {
		t.Errorf("Or(ok) = %v, %v, want 5, nil", got, err)
	}

	_, err = httperr.Or(5, false, httperr.KindNotFound, "missing")

	var e *httperr.Error
	if !errors.As(err, &e) || e.Status() != http.StatusNotFound || e.Message != "missing" {
		t.Errorf("Or(!ok) error = %v, want 404 missing", err)
	}
}

func TestWrite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   httperr.Body
	}{
		{
			name:       "unauthorized",
			err:        httperr.New(httperr.KindUnauthorized),
			wantStatus: http.StatusUnauthorized,
			wantBody:   httperr.Body{StatusCode: 401, Message: "Unauthorized"},
		},
		{
			name:       "location is rendered",
			err:        httperr.Newf(httperr.KindBadRequest, "invalid value").WithLocation("id"),
			wantStatus: http.StatusBadRequest,
			wantBody:   httperr.Body{StatusCode: 400, Message: "invalid value", Location: "id"},
		},
		{
			name:       "internal detail is hidden",
			err:        errors.New("dial tcp 10.0.0.1:6379: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   httperr.Body{StatusCode: 500, Message: "Internal Server Error"},
		},
		{
			name:       "internal override message is hidden",
			err:        httperr.Newf(httperr.KindInternal, "sqlite: disk I/O error"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   httperr.Body{StatusCode: 500, Message: "Internal Server Error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			httperr.Write(rec, req, tt.err, logging.NewNopLogger())

			if rec.Code != tt.wantStatus {
				t.Errorf("Write() status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var got httperr.Body
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("decode body: %v", err)
			}

			if got.StatusCode != tt.wantBody.StatusCode || got.Message != tt.wantBody.Message ||
				got.Location != tt.wantBody.Location {
				t.Errorf("Write() body = %+v, want %+v", got, tt.wantBody)
			}
		})
	}
}

func TestWriteValidation(t *testing.T) {
	t.Parallel()

	violations := validate.Violations{
		{Field: "name", Message: "must not be empty"},
		{Field: "email", Message: "must be a valid email address"},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	httperr.Write(rec, req, httperr.Validation(violations), logging.NewNopLogger())

	var got httperr.Body
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if len(got.Errors) != 2 {
		t.Errorf("Write() errors = %v, want 2 entries", got.Errors)
	}

	if !strings.HasPrefix(got.Message, "Input validation error: [name: must not be empty") {
		t.Errorf("Write() message = %q", got.Message)
	}
}
