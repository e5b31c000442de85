package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/costlens/costlens-cli/internal/api"
	"github.com/costlens/costlens-cli/internal/poll"
	"github.com/costlens/costlens-cli/internal/resolve"
	"github.com/costlens/costlens-cli/internal/session"
)

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"nil", nil, exitOK},
		{"help", pflag.ErrHelp, exitOK},
		{"not authenticated", session.ErrNotAuthenticated, exitAuth},
		{"session expired", &api.SessionExpiredError{}, exitAuth},
		{"wrapped session expired", fmt.Errorf("login failed: %w", &api.SessionExpiredError{}), exitAuth},
		{"not found", &api.RequestFailedError{StatusCode: 404}, exitNotFound},
		{"forbidden", &api.RequestFailedError{StatusCode: 403}, exitForbidden},
		{"rate limited", &api.RequestFailedError{StatusCode: 429}, exitRateLimited},
		{"server", &api.RequestFailedError{StatusCode: 502}, exitServer},
		{"bad request", &api.RequestFailedError{StatusCode: 400}, exitUsage},
		{"conflict", &api.RequestFailedError{StatusCode: 409}, exitUsage},
		{"teapot", &api.RequestFailedError{StatusCode: 418}, exitGeneric},
		{"network", &api.TransportUnavailableError{Err: errors.New("dial tcp: connection refused")}, exitNetwork},
		{"ref not found", &refNotFoundError{resource: "tag", ref: "x"}, exitNotFound},
		{"ambiguous", &resolve.AmbiguousError{Query: "prod"}, exitUsage},
		{"invalid interval", poll.ErrInvalidInterval, exitUsage},
		{"usage", errors.New("unknown command \"nope\" for \"costlens\""), exitUsage},
		{"required flag", errors.New(`required flag(s) "format" not set`), exitUsage},
		{"flag validation", errors.New("--limit must be greater than 0"), exitUsage},
		{"generic", errors.New("boom"), exitGeneric},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExitCode(tc.err); got != tc.code {
				t.Fatalf("ExitCode(%v) = %d, want %d", tc.err, got, tc.code)
			}
		})
	}
}

func TestExitCode_HandledErrorUsesStoredCode(t *testing.T) {
	err := &handledError{err: errors.New("wrapped"), exitCode: exitNotFound}
	if got := ExitCode(err); got != exitNotFound {
		t.Fatalf("ExitCode(handled) = %d, want %d", got, exitNotFound)
	}
}

func TestExitCode_HandledErrorWithoutCodeUsesInner(t *testing.T) {
	err := &handledError{err: &api.RequestFailedError{StatusCode: 403}}
	if got := ExitCode(err); got != exitForbidden {
		t.Fatalf("ExitCode(handled) = %d, want %d", got, exitForbidden)
	}
}

func TestHandleError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "not authenticated",
			err:  session.ErrNotAuthenticated,
			want: []string{"Not logged in.", "costlens auth login", "COSTLENS_TOKEN"},
		},
		{
			name: "session expired",
			err:  &api.SessionExpiredError{},
			want: []string{"Session expired.", "costlens auth login"},
		},
		{
			name: "request failed with detail",
			err:  &api.RequestFailedError{StatusCode: 403, Detail: "Plan limit reached", RequestID: "req-42"},
			want: []string{"Error: Plan limit reached", "Suggestions:", "Request ID: req-42"},
		},
		{
			name: "request failed without detail",
			err:  &api.RequestFailedError{StatusCode: 500},
			want: []string{"Error: request failed"},
		},
		{
			name: "transport",
			err:  &api.TransportUnavailableError{Err: errors.New("connection refused")},
			want: []string{"API unreachable", "--api-url"},
		},
		{
			name: "ambiguous",
			err:  &resolve.AmbiguousError{Query: "prod", Matches: []resolve.Match{{ID: "1", Name: "prod"}, {ID: "2", Name: "prod"}}},
			want: []string{"ambiguous match", "Use the exact name or the ID"},
		},
		{
			name: "other",
			err:  errors.New("boom"),
			want: []string{"Error: boom"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := HandleError(tc.err)
			for _, want := range tc.want {
				if !strings.Contains(got, want) {
					t.Errorf("HandleError() = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestHandleError_Nil(t *testing.T) {
	if got := HandleError(nil); got != "" {
		t.Fatalf("HandleError(nil) = %q, want empty", got)
	}
}

func TestExecute_UnauthenticatedExitCode(t *testing.T) {
	handler := newRouteHandler()
	setupTestEnvWithHandler(t, handler)
	t.Setenv("COSTLENS_TOKEN", "")

	var err error
	stderr := captureStderr(t, func() {
		err = Execute(context.Background(), []string{"stats"})
	})
	if err == nil {
		t.Fatal("expected error without a session")
	}
	if got := ExitCode(err); got != exitAuth {
		t.Fatalf("ExitCode = %d, want %d", got, exitAuth)
	}
	if !strings.Contains(stderr, "Not logged in.") {
		t.Errorf("stderr = %q, want login hint", stderr)
	}
	if n := handler.count("GET", "/api/stats"); n != 0 {
		t.Errorf("expected no request without a session, got %d", n)
	}
}

func TestExecute_SessionExpiredClearsAndExits(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/api/stats", jsonResponse(401, `{"detail": "token expired"}`))
	setupTestEnvWithHandler(t, handler)

	var err error
	stderr := captureStderr(t, func() {
		err = Execute(context.Background(), []string{"stats"})
	})
	if got := ExitCode(err); got != exitAuth {
		t.Fatalf("ExitCode = %d, want %d (err=%v)", got, exitAuth, err)
	}
	if !strings.Contains(stderr, "Signed out.") {
		t.Errorf("stderr = %q, want sign-out notice", stderr)
	}
	if !strings.Contains(stderr, "Session expired.") {
		t.Errorf("stderr = %q, want session expired message", stderr)
	}
}

func TestExecute_JSONErrorOnStderr(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/api/stats", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Request-Id", "req-9")
			jsonResponse(503, `{"detail": "maintenance"}`)(w, r)
		})
	setupTestEnvWithHandler(t, handler)

	var err error
	stderr := captureStderr(t, func() {
		err = Execute(context.Background(), []string{"stats", "--json"})
	})
	if got := ExitCode(err); got != exitServer {
		t.Fatalf("ExitCode = %d, want %d", got, exitServer)
	}
	for _, want := range []string{`"kind": "request_failed"`, `"message": "maintenance"`, `"status_code": 503`} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr = %q, missing %s", stderr, want)
		}
	}
}
