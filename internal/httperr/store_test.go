package httperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/mkrupp/homecase-postboard/internal/domain"
	"github.com/mkrupp/homecase-postboard/internal/httperr"
)

func TestFromStore(t *testing.T) {
	t.Parallel()

	unique := &domain.ConstraintError{
		Kind:   domain.ConstraintUnique,
		Detail: "UNIQUE constraint failed: users.email",
	}

	tests := []struct {
		name        string
		err         error
		opts        []httperr.StoreOption
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "unique violation is a bad request",
			err:         fmt.Errorf("insert user: %w", unique),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "UNIQUE constraint failed: users.email",
		},
		{
			name:        "unique violation as conflict",
			err:         fmt.Errorf("insert post: %w", unique),
			opts:        []httperr.StoreOption{httperr.UniqueAsConflict()},
			wantStatus:  http.StatusConflict,
			wantMessage: "UNIQUE constraint failed: users.email",
		},
		{
			name: "primary key violation follows unique",
			err: &domain.ConstraintError{
				Kind:   domain.ConstraintPrimaryKey,
				Detail: "UNIQUE constraint failed: posts.id",
			},
			opts:        []httperr.StoreOption{httperr.UniqueAsConflict()},
			wantStatus:  http.StatusConflict,
			wantMessage: "UNIQUE constraint failed: posts.id",
		},
		{
			name: "foreign key violation is a bad request",
			err: &domain.ConstraintError{
				Kind:   domain.ConstraintForeignKey,
				Detail: "FOREIGN KEY constraint failed",
			},
			opts:        []httperr.StoreOption{httperr.UniqueAsConflict()},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "FOREIGN KEY constraint failed",
		},
		{
			name:        "not found",
			err:         fmt.Errorf("get post: %w", domain.ErrPostNotFound),
			opts:        []httperr.StoreOption{httperr.NotFoundMessage("No post found with id 3")},
			wantStatus:  http.StatusNotFound,
			wantMessage: "No post found with id 3",
		},
		{
			name:        "unavailable store is internal",
			err:         errors.Join(domain.ErrStoreUnavailable, errors.New("context deadline exceeded")),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Internal Server Error",
		},
		{
			name:        "unknown constraint is internal",
			err:         &domain.ConstraintError{Kind: domain.ConstraintNone, Detail: "constraint failed"},
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Internal Server Error",
		},
		{
			name:        "classified errors pass through",
			err:         fmt.Errorf("delete: %w", httperr.New(httperr.KindForbidden)),
			wantStatus:  http.StatusForbidden,
			wantMessage: "Forbidden",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := httperr.FromStore(tt.err, tt.opts...)
			if got.Status() != tt.wantStatus {
				t.Errorf("FromStore().Status() = %d, want %d", got.Status(), tt.wantStatus)
			}

			if got.Message != tt.wantMessage {
				t.Errorf("FromStore().Message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFromStoreNil(t *testing.T) {
	t.Parallel()

	if got := httperr.FromStore(nil); got != nil {
		t.Errorf("FromStore(nil) = %v, want nil", got)
	}
}

func TestFromStoreOptionsDoNotLeak(t *testing.T) {
	t.Parallel()

	unique := &domain.ConstraintError{Kind: domain.ConstraintUnique, Detail: "dup"}

	_ = httperr.FromStore(unique, httperr.UniqueAsConflict())

	if got := httperr.FromStore(unique); got.Status() != http.StatusBadRequest {
		t.Errorf("FromStore() after UniqueAsConflict() = %d, want %d", got.Status(), http.StatusBadRequest)
	}
}
