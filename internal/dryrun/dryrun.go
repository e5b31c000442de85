// Package dryrun previews mutating API calls without sending them.
package dryrun

import (
	"context"
	"fmt"
	"io"
	"sort"
)

type contextKey string

const dryRunKey contextKey = "dry_run_enabled"

// WithDryRun returns a context with dry-run mode enabled/disabled.
func WithDryRun(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, dryRunKey, enabled)
}

// IsEnabled returns true if dry-run mode is enabled.
func IsEnabled(ctx context.Context) bool {
	if v, ok := ctx.Value(dryRunKey).(bool); ok {
		return v
	}
	return false
}

// Preview is the request a mutation would have sent.
type Preview struct {
	DryRun   bool           `json:"dry_run"`
	Method   string         `json:"method"`
	Path     string         `json:"path"`
	Resource string         `json:"resource"`
	Target   string         `json:"target,omitempty"`
	Body     map[string]any `json:"body,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

// New returns a preview for method and path.
func New(method, path, resource string) *Preview {
	return &Preview{DryRun: true, Method: method, Path: path, Resource: resource}
}

// Write outputs the preview as text. Body fields are printed in key order.
func (p *Preview) Write(w io.Writer) {
	_, _ = fmt.Fprintf(w, "[dry-run] Would %s %s\n", p.Method, p.Path)
	if p.Target != "" {
		_, _ = fmt.Fprintf(w, "  %s: %s\n", p.Resource, p.Target)
	}

	keys := make([]string, 0, len(p.Body))
	for k := range p.Body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "  %s: %v\n", k, p.Body[k])
	}

	for _, warning := range p.Warnings {
		_, _ = fmt.Fprintf(w, "  ! %s\n", warning)
	}
	_, _ = fmt.Fprintln(w, "No changes made.")
}
