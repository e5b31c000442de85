package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costlens/costlens-cli/internal/api"
	"github.com/costlens/costlens-cli/internal/query"
	"github.com/costlens/costlens-cli/internal/session"
)

const testToken = "secret-token-value"

func newTestClient(t *testing.T, handler http.HandlerFunc) *api.Client {
	t.Helper()
	t.Setenv("COSTLENS_TOKEN", "")
	ring := keyring.NewArrayKeyring(nil)
	t.Cleanup(session.SetOpenKeyring(func(keyring.Config) (keyring.Keyring, error) {
		return ring, nil
	}))

	store := session.New()
	require.NoError(t, store.Set(testToken, &session.UserProfile{ID: "u1"}))

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return api.New(server.URL, store)
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestDownload_AuthenticatesByHeaderOnly(t *testing.T) {
	var gotURL, gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="costlens-logs-2026-03.csv"`)
		_, _ = w.Write([]byte("id,cost_usd\nl1,0.01\n"))
	})
	dir := t.TempDir()
	d := &Downloader{Client: client, Saver: DirSaver{Dir: dir}}

	res, err := d.Download(context.Background(), Request{
		Format:  FormatCSV,
		Filters: query.Params{"provider": "openai", "model": "", "start_date": nil},
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/export/csv?provider=openai", gotURL)
	assert.NotContains(t, gotURL, "token=")
	assert.NotContains(t, gotURL, testToken)
	assert.Equal(t, "Bearer "+testToken, gotAuth)

	assert.Equal(t, "costlens-logs-2026-03.csv", res.Filename)
	assert.Equal(t, int64(20), res.Bytes)
	data, err := os.ReadFile(filepath.Join(dir, "costlens-logs-2026-03.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id,cost_usd\nl1,0.01\n", string(data))
	assert.Equal(t, []string{"costlens-logs-2026-03.csv"}, dirEntries(t, dir), "no temp files left")
}

func TestDownload_DefaultFilename(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	var buf bytes.Buffer
	d := &Downloader{Client: client, Saver: WriterSaver{W: &buf}}

	res, err := d.Download(context.Background(), Request{Format: FormatJSON})
	require.NoError(t, err)
	assert.Equal(t, "costlens-export.json", res.Filename)
	assert.Equal(t, "[]", buf.String())
}

func TestDownload_SessionExpired(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	dir := t.TempDir()
	d := &Downloader{Client: client, Saver: DirSaver{Dir: dir}}

	_, err := d.Download(context.Background(), Request{Format: FormatCSV})
	assert.True(t, api.IsSessionExpired(err))
	assert.False(t, client.Session.IsAuthenticated())
	assert.Empty(t, dirEntries(t, dir))
}

func TestDownload_RequestFailed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("partial,data"))
	})
	dir := t.TempDir()
	d := &Downloader{Client: client, Saver: DirSaver{Dir: dir}}

	_, err := d.Download(context.Background(), Request{Format: FormatCSV})
	var failed *api.RequestFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, http.StatusServiceUnavailable, failed.StatusCode)
	assert.Contains(t, err.Error(), "503")
	assert.True(t, client.Session.IsAuthenticated())
	assert.Empty(t, dirEntries(t, dir))
}

func TestDownload_RequestFailedWithDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail": "export backend down"}`))
	})
	dir := t.TempDir()
	d := &Downloader{Client: client, Saver: DirSaver{Dir: dir}}

	_, err := d.Download(context.Background(), Request{Format: FormatJSON})
	require.Error(t, err)
	assert.Equal(t, "export failed (HTTP 500): export backend down", err.Error())
	var failed *api.RequestFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "export backend down", failed.Detail)
	assert.Equal(t, "export backend down", api.UserMessage(err))
	assert.Empty(t, dirEntries(t, dir))
}

func TestDownload_InvalidFormat(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls++ })
	d := &Downloader{Client: client, Saver: WriterSaver{W: io.Discard}}

	_, err := d.Download(context.Background(), Request{Format: "xlsx"})
	assert.Error(t, err)
	assert.Zero(t, calls, "no request for an invalid format")
}

func TestDirSaver_NoPartialFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	body := io.MultiReader(strings.NewReader("id,cost\n"), iotest.ErrReader(errors.New("connection reset")))

	_, _, err := DirSaver{Dir: dir}.Save("costlens-export.csv", body)
	assert.Error(t, err)
	assert.Empty(t, dirEntries(t, dir))
}

func TestDirSaver_DoesNotClobber(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.csv"), []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report-1.csv"), []byte("older"), 0o644))

	location, n, err := DirSaver{Dir: dir}.Save("report.csv", strings.NewReader("new"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report-2.csv"), location)
	assert.Equal(t, int64(3), n)

	old, err := os.ReadFile(filepath.Join(dir, "report.csv"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(old))
}

func TestDirSaver_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports", "march")
	location, _, err := DirSaver{Dir: dir}.Save("a.json", strings.NewReader("{}"))
	require.NoError(t, err)
	assert.FileExists(t, location)
}

func TestFilenameFromDisposition(t *testing.T) {
	tests := []struct {
		header   string
		expected string
	}{
		{"", ""},
		{"attachment", ""},
		{`attachment; filename="logs.csv"`, "logs.csv"},
		{"attachment; filename=logs.json", "logs.json"},
		{`attachment; filename*=UTF-8''co%C3%BBts.csv`, "coûts.csv"},
		{"attachment; filename=my logs.csv", "my logs.csv"},
		{`attachment; filename="../../etc/passwd"`, "passwd"},
		{`attachment; filename="..\..\evil.csv"`, "evil.csv"},
		{`attachment; filename=".."`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.expected, FilenameFromDisposition(tt.header))
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)

	assert.Equal(t, "costlens-export.csv", DefaultFilename(FormatCSV))
}

func TestRequest_Path(t *testing.T) {
	assert.Equal(t, "/api/export/json", Request{Format: FormatJSON}.Path())
	assert.Equal(t, "/api/export/csv?page=1&tag=prod",
		Request{Format: FormatCSV, Filters: query.Params{"tag": "prod", "page": 1}}.Path())
}
