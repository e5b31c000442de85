package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"flag"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/costlens/costlens-cli/internal/session"
)

// CallbackPath is where the identity provider redirects after consent.
const CallbackPath = "/callback"

// ExchangeFunc trades an authorization code for a stored session.
type ExchangeFunc func(ctx context.Context, code, redirectURI string) (*session.UserProfile, error)

// LoginResult contains the result of a browser-based login
type LoginResult struct {
	User *session.UserProfile
}

// LoginConfig configures a LoginServer.
type LoginConfig struct {
	AuthURL  string
	ClientID string
	Scopes   []string
	Exchange ExchangeFunc
	// Out receives the instructions shown to the user.
	Out       io.Writer
	NoBrowser bool
}

// LoginServer runs the local OAuth redirect target for browser login.
type LoginServer struct {
	cfg   LoginConfig
	state string

	result chan loginOutcome
	once   sync.Once

	redirectURI  string
	authorizeURL string
}

type loginOutcome struct {
	user *session.UserProfile
	err  error
}

// NewLoginServer creates a new login server
func NewLoginServer(cfg LoginConfig) (*LoginServer, error) {
	if strings.TrimSpace(cfg.AuthURL) == "" {
		return nil, errors.New("authorization URL is not configured (set COSTLENS_AUTH_URL)")
	}
	if cfg.Exchange == nil {
		return nil, errors.New("no code exchange configured")
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &LoginServer{
		cfg:    cfg,
		state:  uuid.NewString(),
		result: make(chan loginOutcome, 1),
	}, nil
}

// oauthConfig builds the authorize request for redirectURI.
func (s *LoginServer) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    s.cfg.ClientID,
		Endpoint:    oauth2.Endpoint{AuthURL: s.cfg.AuthURL},
		RedirectURL: redirectURI,
		Scopes:      s.cfg.Scopes,
	}
}

// Start listens on a loopback port, sends the user to the identity provider
// and waits for the redirect back. It returns once the code is exchanged, the
// exchange fails, or ctx is done.
func (s *LoginServer) Start(ctx context.Context) (*LoginResult, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start server: %w", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	s.redirectURI = fmt.Sprintf("http://127.0.0.1:%d%s", port, CallbackPath)
	s.authorizeURL = s.oauthConfig(s.redirectURI).AuthCodeURL(s.state)

	server := &http.Server{
		Handler:      s.handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		_ = server.Serve(listener)
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			_ = server.Close()
		}
	}()

	// Print URL first so user can open manually if needed
	_, _ = fmt.Fprintf(s.cfg.Out, "Open this URL in your browser to sign in:\n  %s\n", s.authorizeURL)
	if !s.cfg.NoBrowser {
		if err := openBrowser(s.authorizeURL); err != nil {
			_, _ = fmt.Fprintf(s.cfg.Out, "Could not open browser automatically: %v\n", err)
		}
	}

	select {
	case outcome := <-s.result:
		if outcome.err != nil {
			return nil, outcome.err
		}
		return &LoginResult{User: outcome.user}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *LoginServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc(CallbackPath, s.handleCallback)
	return mux
}

// handleRoot sends a browser that hit the bare port to the provider.
func (s *LoginServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || s.authorizeURL == "" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, s.authorizeURL, http.StatusFound)
}

func (s *LoginServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	if subtle.ConstantTimeCompare([]byte(q.Get("state")), []byte(s.state)) != 1 {
		http.Error(w, "Invalid state parameter", http.StatusForbidden)
		return
	}

	if providerErr := q.Get("error"); providerErr != "" {
		msg := providerErr
		if desc := q.Get("error_description"); desc != "" {
			msg = fmt.Sprintf("%s: %s", providerErr, desc)
		}
		s.finish(w, http.StatusBadRequest, nil, fmt.Errorf("authorization denied: %s", msg))
		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	user, err := s.cfg.Exchange(r.Context(), code, s.redirectURI)
	if err != nil {
		s.finish(w, http.StatusBadGateway, nil, fmt.Errorf("sign-in failed: %w", err))
		return
	}
	s.finish(w, http.StatusOK, user, nil)
}

// finish renders the result page and reports the outcome once. Later
// callbacks still get a page but do not change the outcome.
func (s *LoginServer) finish(w http.ResponseWriter, status int, user *session.UserProfile, err error) {
	s.once.Do(func() {
		s.result <- loginOutcome{user: user, err: err}
	})

	data := resultPage{Success: err == nil}
	if err != nil {
		data.Message = err.Error()
	} else if user != nil {
		data.Name = user.Name
		data.Email = user.Email
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = resultTemplate.Execute(w, data)
}

type resultPage struct {
	Success bool
	Name    string
	Email   string
	Message string
}

var resultTemplate = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>CostLens CLI</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; background: #0f172a; color: #e2e8f0; display: flex; align-items: center; justify-content: center; min-height: 100vh; margin: 0; }
.card { background: #1e293b; border-radius: 12px; padding: 2rem 2.5rem; max-width: 28rem; text-align: center; }
.ok { color: #4ade80; }
.fail { color: #f87171; }
p { color: #94a3b8; }
</style>
</head>
<body>
<div class="card">
{{if .Success}}
<h1 class="ok">Signed in</h1>
<p>{{if .Name}}{{.Name}} {{end}}{{if .Email}}&lt;{{.Email}}&gt;{{end}}</p>
<p>You can close this tab and return to the terminal.</p>
{{else}}
<h1 class="fail">Sign-in failed</h1>
<p>{{.Message}}</p>
<p>Return to the terminal and run <code>costlens auth login</code> again.</p>
{{end}}
</div>
</body>
</html>
`))

// openBrowser opens the URL in the default browser
func openBrowser(url string) error {
	if shouldSkipAutoBrowserOpen() {
		return nil
	}

	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform")
	}

	return cmd.Start()
}

func shouldSkipAutoBrowserOpen() bool {
	// Always skip browser launch when running under `go test`.
	if flag.Lookup("test.v") != nil {
		return true
	}

	noBrowser := strings.TrimSpace(strings.ToLower(os.Getenv("COSTLENS_NO_BROWSER")))
	return noBrowser == "1" || noBrowser == "true" || noBrowser == "yes"
}
