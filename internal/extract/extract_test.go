package extract_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mkrupp/homecase-postboard/internal/extract"
	"github.com/mkrupp/homecase-postboard/internal/httperr"
	"github.com/mkrupp/homecase-postboard/internal/validate"
)

type createUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *createUser) Validate() validate.Violations {
	return validate.Collect(
		validate.Required("name", c.Name),
		validate.Email("email", c.Email),
		validate.MinLength("password", c.Password, 8),
	)
}

type redirect struct {
	URI *string `json:"uri"`
}

func (*redirect) Validate() validate.Violations { return nil }

type userID struct {
	ID int64 `path:"id"`
}

func (u *userID) Validate() validate.Violations {
	return validate.Collect(validate.Min("id", u.ID, 1))
}

type deleteOpts struct {
	Thoroughly *bool `query:"thoroughly"`
}

func (*deleteOpts) Validate() validate.Violations { return nil }

func classify(t *testing.T, err error) *httperr.Error {
	t.Helper()

	var e *httperr.Error
	if !errors.As(err, &e) {
		t.Fatalf("error = %v, want *httperr.Error", err)
	}

	return e
}

func newBodyRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/user", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	return req
}

func TestBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           string
		maxBytes       int64
		wantStatus     int
		wantLocation   string
		wantViolations int
	}{
		{
			name:       "valid",
			body:       `{"name":"alice","email":"alice@example.com","password":"password1"}`,
			wantStatus: 0,
		},
		{
			name:           "aggregates every violation",
			body:           `{"name":"","email":"not-an-email","password":"short"}`,
			wantStatus:     http.StatusBadRequest,
			wantViolations: 3,
		},
		{
			name:         "wrong field type is located",
			body:         `{"name":1,"email":"alice@example.com","password":"password1"}`,
			wantStatus:   http.StatusBadRequest,
			wantLocation: "name",
		},
		{
			name:         "unknown field is rejected",
			body:         `{"name":"alice","email":"alice@example.com","password":"password1","admin":true}`,
			wantStatus:   http.StatusBadRequest,
			wantLocation: "admin",
		},
		{
			name:       "malformed json has no location",
			body:       `{"name":"alice",`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "trailing data",
			body:       `{"name":"alice","email":"alice@example.com","password":"password1"}{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "oversized body",
			body:       `{"name":"` + strings.Repeat("a", 64) + `"}`,
			maxBytes:   16,
			wantStatus: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := extract.Body[createUser](newBodyRequest(tt.body), tt.maxBytes)

			if tt.wantStatus == 0 {
				if err != nil {
					t.Fatalf("Body() error = %v", err)
				}

				if got.Name != "alice" {
					t.Errorf("Body().Name = %q, want alice", got.Name)
				}

				return
			}

			e := classify(t, err)
			if e.Status() != tt.wantStatus {
				t.Errorf("Body() status = %d, want %d (%v)", e.Status(), tt.wantStatus, e)
			}

			if e.Location != tt.wantLocation {
				t.Errorf("Body() location = %q, want %q", e.Location, tt.wantLocation)
			}

			if len(e.Violations) != tt.wantViolations {
				t.Errorf("Body() violations = %v, want %d", e.Violations, tt.wantViolations)
			}
		})
	}
}

func TestBodyEmptyOptional(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/user/signout", nil)

	got, err := extract.Body[redirect](req, 0)
	if err != nil {
		t.Fatalf("Body() error = %v", err)
	}

	if got.URI != nil {
		t.Errorf("Body().URI = %v, want nil", *got.URI)
	}
}

func TestBodyEmptyRequired(t *testing.T) {
	t.Parallel()

	_, err := extract.Body[createUser](newBodyRequest(""), 0)

	if e := classify(t, err); len(e.Violations) != 3 {
		t.Errorf("Body() violations = %v, want 3", e.Violations)
	}
}

func TestBodyRejectsForeignContentType(t *testing.T) {
	t.Parallel()

	req := newBodyRequest(`{"uri":"/home"}`)
	req.Header.Set("Content-Type", "text/plain")

	_, err := extract.Body[redirect](req, 0)
	if e := classify(t, err); e.Status() != http.StatusBadRequest {
		t.Errorf("Body() status = %d, want 400", e.Status())
	}
}

func TestPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		id           string
		want         int64
		wantStatus   int
		wantLocation string
	}{
		{name: "valid", id: "42", want: 42},
		{name: "not a number", id: "abc", wantStatus: http.StatusBadRequest, wantLocation: "id"},
		{name: "below minimum", id: "0", wantStatus: http.StatusBadRequest},
		{name: "missing", id: "", wantStatus: http.StatusBadRequest, wantLocation: "id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodDelete, "/api/v1/user/x", nil)
			req.SetPathValue("id", tt.id)

			got, err := extract.Path[userID](req)

			if tt.wantStatus == 0 {
				if err != nil || got.ID != tt.want {
					t.Errorf("Path() = %v, %v, want %d", got, err, tt.want)
				}

				return
			}

			e := classify(t, err)
			if e.Status() != tt.wantStatus || e.Location != tt.wantLocation {
				t.Errorf("Path() error = %d %q, want %d %q", e.Status(), e.Location, tt.wantStatus, tt.wantLocation)
			}
		})
	}
}

func TestQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		rawQuery   string
		want       *bool
		wantStatus int
	}{
		{name: "absent", rawQuery: "", want: nil},
		{name: "explicit true", rawQuery: "thoroughly=true", want: ptr(true)},
		{name: "explicit false", rawQuery: "thoroughly=false", want: ptr(false)},
		{name: "bare flag", rawQuery: "thoroughly", want: ptr(true)},
		{name: "invalid", rawQuery: "thoroughly=maybe", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodDelete, "/api/v1/user/1?"+tt.rawQuery, nil)

			got, err := extract.Query[deleteOpts](req)

			if tt.wantStatus != 0 {
				if e := classify(t, err); e.Status() != tt.wantStatus || e.Location != "thoroughly" {
					t.Errorf("Query() error = %v, want %d at thoroughly", e, tt.wantStatus)
				}

				return
			}

			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}

			if (got.Thoroughly == nil) != (tt.want == nil) ||
				(got.Thoroughly != nil && *got.Thoroughly != *tt.want) {
				t.Errorf("Query().Thoroughly = %v, want %v", got.Thoroughly, tt.want)
			}
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}
