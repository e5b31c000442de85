package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/costlens/costlens-cli/internal/api"
	"github.com/costlens/costlens-cli/internal/resolve"
	"github.com/costlens/costlens-cli/internal/session"
)

// HandleError processes an error and returns a user-friendly message with suggestions
func HandleError(err error) string {
	if err == nil {
		return ""
	}

	var msg strings.Builder

	var failed *api.RequestFailedError
	var transport *api.TransportUnavailableError
	var ambiguous *resolve.AmbiguousError

	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		msg.WriteString("Not logged in.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Run: costlens auth login\n")
		msg.WriteString("  - Or set COSTLENS_TOKEN for non-interactive use\n")

	case api.IsSessionExpired(err):
		msg.WriteString("Session expired.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Run: costlens auth login\n")

	case errors.As(err, &failed):
		fmt.Fprintf(&msg, "Error: %s\n\n", api.UserMessage(err))
		msg.WriteString(suggestionsForStatusCode(failed.StatusCode))
		if failed.RequestID != "" {
			fmt.Fprintf(&msg, "\nRequest ID: %s\n", failed.RequestID)
		}

	case errors.As(err, &transport):
		fmt.Fprintf(&msg, "%s\n\n", transport.Error())
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check that the API is running and reachable\n")
		msg.WriteString("  - Verify the URL (--api-url or COSTLENS_API_URL)\n")
		msg.WriteString("  - Increase --timeout for slow networks\n")

	case errors.As(err, &ambiguous):
		fmt.Fprintf(&msg, "Error: %s\n\n", ambiguous.Error())
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Use the exact name or the ID\n")

	default:
		fmt.Fprintf(&msg, "Error: %s\n", err.Error())
	}

	return msg.String()
}

func suggestionsForStatusCode(code int) string {
	var suggestions strings.Builder
	suggestions.WriteString("Suggestions:\n")

	switch {
	case code == http.StatusBadRequest, code == http.StatusUnprocessableEntity:
		suggestions.WriteString("  - Check your input values\n")
		suggestions.WriteString("  - Use --debug to see the full request\n")

	case code == http.StatusForbidden:
		suggestions.WriteString("  - You don't have permission for this action\n")

	case code == http.StatusNotFound:
		suggestions.WriteString("  - The resource doesn't exist or was deleted\n")
		suggestions.WriteString("  - Check the ID is correct\n")

	case code == http.StatusTooManyRequests:
		suggestions.WriteString("  - Too many requests\n")
		suggestions.WriteString("  - Wait and retry in a few seconds\n")

	case code >= 500:
		suggestions.WriteString("  - Server error - not your fault\n")
		suggestions.WriteString("  - Wait and retry\n")

	default:
		suggestions.WriteString("  - Use --debug for more details\n")
	}

	return suggestions.String()
}
