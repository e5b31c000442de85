// Package export downloads filtered cost data as CSV or JSON and saves it
// without ever putting the session token in the request URL.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/costlens/costlens-cli/internal/api"
	"github.com/costlens/costlens-cli/internal/query"
)

// Format is an export payload format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("invalid export format %q: must be csv or json", s)
	}
}

// Ext is the file extension for f, without the dot.
func (f Format) Ext() string {
	return string(f)
}

// Request is one export action. It is consumed by a single Download call.
type Request struct {
	Format  Format
	Filters query.Params
}

// Path is the endpoint path including the encoded filters.
func (r Request) Path() string {
	return query.Append("/api/export/"+string(r.Format), query.Encode(r.Filters))
}

// Result describes a completed save.
type Result struct {
	Filename string `json:"filename"`
	Location string `json:"location,omitempty"`
	Bytes    int64  `json:"bytes"`
	Format   Format `json:"format"`
}

// Saver receives the downloaded payload. Implementations must leave nothing
// behind when Save fails.
type Saver interface {
	Save(filename string, body io.Reader) (location string, n int64, err error)
}

// Downloader fetches exports through the shared API client.
type Downloader struct {
	Client *api.Client
	Saver  Saver
}

// Download performs the export and saves it. The outcome is all or nothing:
// on error no file is left behind.
func (d *Downloader) Download(ctx context.Context, req Request) (*Result, error) {
	if _, err := ParseFormat(string(req.Format)); err != nil {
		return nil, err
	}
	if d.Saver == nil {
		return nil, fmt.Errorf("export: no saver configured")
	}

	dl, err := d.Client.Download(ctx, req.Path())
	if err != nil {
		var failed *api.RequestFailedError
		if errors.As(err, &failed) && failed.Detail != "" {
			return nil, fmt.Errorf("export failed (HTTP %d): %w", failed.StatusCode, err)
		}
		return nil, err
	}
	defer func() { _ = dl.Close() }()

	filename := FilenameFromDisposition(dl.Header.Get("Content-Disposition"))
	if filename == "" {
		filename = DefaultFilename(req.Format)
	}

	location, n, err := d.Saver.Save(filename, dl.Body)
	if err != nil {
		return nil, fmt.Errorf("export failed: %w", err)
	}
	d.Client.Logger.Debug().Str("file", filename).Int64("bytes", n).Msg("export saved")
	return &Result{Filename: filename, Location: location, Bytes: n, Format: req.Format}, nil
}

// DefaultFilename is used when the server does not suggest a name.
func DefaultFilename(f Format) string {
	return "costlens-export." + f.Ext()
}

// FilenameFromDisposition extracts the suggested filename from a
// Content-Disposition header. It returns "" when there is none. Directory
// components are stripped.
func FilenameFromDisposition(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}

	var name string
	if _, params, err := mime.ParseMediaType(header); err == nil {
		// mime decodes filename* into filename.
		name = params["filename"]
	} else {
		name = looseFilename(header)
	}
	return sanitizeFilename(name)
}

// looseFilename handles headers mime rejects, such as an unquoted value
// with spaces.
func looseFilename(header string) string {
	lower := strings.ToLower(header)
	idx := strings.Index(lower, "filename=")
	if idx < 0 {
		return ""
	}
	value := header[idx+len("filename="):]
	if end := strings.IndexByte(value, ';'); end >= 0 {
		value = value[:end]
	}
	return strings.Trim(strings.TrimSpace(value), `"'`)
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	name = filepath.Base(name)
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return name
}
