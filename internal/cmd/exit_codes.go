package cmd

import (
	"errors"
	"net/http"
	"strings"

	"github.com/spf13/pflag"

	"github.com/costlens/costlens-cli/internal/api"
	"github.com/costlens/costlens-cli/internal/poll"
	"github.com/costlens/costlens-cli/internal/resolve"
	"github.com/costlens/costlens-cli/internal/session"
)

const (
	exitOK          = 0
	exitGeneric     = 1
	exitUsage       = 2
	exitAuth        = 3
	exitNotFound    = 4
	exitForbidden   = 5
	exitRateLimited = 6
	exitServer      = 7
	exitNetwork     = 8
)

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	var handled *handledError
	if errors.As(err, &handled) {
		if handled.exitCode != 0 {
			return handled.exitCode
		}
		err = handled.err
	}

	if code := exitCodeFromAPI(err); code != 0 {
		return code
	}
	var refErr *refNotFoundError
	var ambiguous *resolve.AmbiguousError
	switch {
	case errors.As(err, &refErr):
		return exitNotFound
	case errors.As(err, &ambiguous), errors.Is(err, poll.ErrInvalidInterval):
		return exitUsage
	case isUsageError(err):
		return exitUsage
	}
	return exitGeneric
}

func exitCodeFromAPI(err error) int {
	if errors.Is(err, session.ErrNotAuthenticated) || api.IsSessionExpired(err) {
		return exitAuth
	}
	if api.IsTransportUnavailable(err) {
		return exitNetwork
	}

	var failed *api.RequestFailedError
	if !errors.As(err, &failed) {
		return 0
	}
	switch code := failed.StatusCode; {
	case code == http.StatusForbidden:
		return exitForbidden
	case code == http.StatusNotFound:
		return exitNotFound
	case code == http.StatusTooManyRequests:
		return exitRateLimited
	case code >= 500:
		return exitServer
	case code == http.StatusBadRequest, code == http.StatusConflict, code == http.StatusUnprocessableEntity:
		return exitUsage
	default:
		return exitGeneric
	}
}

func isUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	indicators := []string{
		"unknown command",
		"unknown flag",
		"unknown shorthand flag",
		"flag needs an argument",
		"requires at least",
		"requires exactly",
		"accepts at most",
		"invalid argument",
		"invalid value",
		"invalid export format",
		"invalid output format",
		"invalid webhook url",
		"invalid color",
		"invalid --",
		"exceeds maximum length",
		"must be",
		"is required",
		"required flag",
		"conflicts with",
		"cannot be used together",
	}
	for _, indicator := range indicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}
