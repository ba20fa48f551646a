package context_test

import (
	"context"
	"testing"

	"github.com/mkrupp/homecase-postboard/internal/domain"
	context_ "github.com/mkrupp/homecase-postboard/internal/infra/context"
)

func TestIdentityFromContext(t *testing.T) {
	t.Parallel()

	if _, ok := context_.IdentityFromContext(context.Background()); ok {
		t.Errorf("IdentityFromContext() ok = true on empty context")
	}

	want := domain.Identity{UserID: 7, Name: "alice", Email: "alice@example.com", ExpiresAt: 1700000000}
	ctx := context_.WithIdentity(context.Background(), want)

	got, ok := context_.IdentityFromContext(ctx)
	if !ok {
		t.Fatalf("IdentityFromContext() ok = false, want true")
	}

	if got != want {
		t.Errorf("IdentityFromContext() = %+v, want %+v", got, want)
	}
}

func TestRequestIDFromContext(t *testing.T) {
	t.Parallel()

	if _, ok := context_.RequestIDFromContext(context_.WithRequestID(context.Background(), "")); ok {
		t.Errorf("RequestIDFromContext() ok = true for empty id")
	}

	got, ok := context_.RequestIDFromContext(context_.WithRequestID(context.Background(), "abc"))
	if !ok || got != "abc" {
		t.Errorf("RequestIDFromContext() = %q, %v, want %q, true", got, ok, "abc")
	}
}
