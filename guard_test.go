package queuedash

import (
	"context"
	stderr "errors"
	"testing"
	"time"
)

func TestGuardDefaultAllow(t *testing.T) {
	g := &guard{}

	if err := g.check(context.Background(), ActionQueuePause); err != nil {
		t.Fatalf("expected default allow, got %v", err)
	}
}

func TestGuardReadOnlyShortCircuitsAuthorizer(t *testing.T) {
	var invoked bool
	g := &guard{
		readOnly: true,
		auth: AuthorizerFunc(func(context.Context, Action) bool {
			invoked = true
			return true
		}),
	}

	err := g.check(context.Background(), ActionQueueObliterate)
	if !stderr.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}

	if invoked {
		t.Fatal("authorizer must not run while read-only")
	}
}

func TestGuardDeny(t *testing.T) {
	g := &guard{
		auth: AuthorizerFunc(func(context.Context, Action) bool { return false }),
	}

	if err := g.check(context.Background(), ActionJobRemove); !stderr.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestGuardPassesExactAction(t *testing.T) {
	actions := []Action{
		ActionQueuePause, ActionQueueResume, ActionQueueObliterate,
		ActionQueueDrain, ActionQueueRetryAll, ActionQueueClean,
		ActionJobRemove, ActionJobRetry, ActionJobPromote,
	}

	for _, want := range actions {
		var got Action
		g := &guard{
			auth: AuthorizerFunc(func(_ context.Context, a Action) bool {
				got = a
				return true
			}),
		}

		if err := g.check(context.Background(), want); err != nil {
			t.Fatalf("unexpected error for %s: %v", want, err)
		}

		if got != want {
			t.Fatalf("unexpected action tag, got %q, want %q", got, want)
		}
	}
}

func TestGuardAwaitsSlowAuthorizer(t *testing.T) {
	g := &guard{
		auth: AuthorizerFunc(func(ctx context.Context, _ Action) bool {
			// emulate a remote policy call completing later
			done := make(chan bool, 1)
			go func() {
				time.Sleep(10 * time.Millisecond)
				done <- false
			}()

			select {
			case v := <-done:
				return v
			case <-ctx.Done():
				return false
			}
		}),
	}

	if err := g.check(context.Background(), ActionQueueDrain); !stderr.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized from async deny, got %v", err)
	}
}
