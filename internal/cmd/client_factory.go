package cmd

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/costlens/costlens-cli/internal/api"
	"github.com/costlens/costlens-cli/internal/config"
	"github.com/costlens/costlens-cli/internal/session"
)

// newSessionStore is swapped in tests.
var newSessionStore = func(logger zerolog.Logger) *session.Store {
	return session.New(session.WithLogger(logger))
}

type clientFactory struct {
	overrides config.Overrides
	userAgent string
	logger    zerolog.Logger
	errOut    io.Writer
}

func newClientFactory(cmd *cobra.Command) *clientFactory {
	return &clientFactory{
		overrides: config.Overrides{APIURL: flags.APIURL, Timeout: flags.Timeout},
		userAgent: fmt.Sprintf("costlens-cli/%s", version),
		logger:    logger,
		errOut:    cmd.ErrOrStderr(),
	}
}

func (f *clientFactory) settings() (config.Settings, error) {
	return config.Resolve(f.overrides)
}

// client builds an API client with a fresh session store. Clearing the
// session sends the user back to the login command.
func (f *clientFactory) client() (*api.Client, config.Settings, error) {
	s, err := f.settings()
	if err != nil {
		return nil, config.Settings{}, err
	}

	store := newSessionStore(f.logger)
	errOut := f.errOut
	store.OnClear(func() {
		_, _ = fmt.Fprintln(errOut, "Signed out. Run 'costlens auth login' to sign in again.")
	})

	client := api.New(s.APIURL, store)
	if s.Timeout > 0 {
		client.HTTP.Timeout = s.Timeout
	}
	client.UserAgent = f.userAgent
	client.Logger = f.logger
	return client, s, nil
}

// getClient creates an API client from resolved settings and the stored session
func getClient(cmd *cobra.Command) (*api.Client, error) {
	client, _, err := newClientFactory(cmd).client()
	return client, err
}

// getAuthedClient is getClient plus a fail-fast check for a stored session.
func getAuthedClient(cmd *cobra.Command) (*api.Client, error) {
	client, err := getClient(cmd)
	if err != nil {
		return nil, err
	}
	if err := client.RequireSession(); err != nil {
		return nil, err
	}
	return client, nil
}
