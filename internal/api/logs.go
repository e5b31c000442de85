package api

import (
	"context"
	"net/http"

	"github.com/costlens/costlens-cli/internal/query"
)

const logsPath = "/api/logs"

// List returns one page of request logs matching filter.
func (s LogsService) List(ctx context.Context, filter LogFilter) (*Page[LogEntry], error) {
	qs, err := query.EncodeStruct(filter)
	if err != nil {
		return nil, err
	}
	return listLogs(ctx, s.Client, qs)
}

// ListWithParams is List for ad-hoc parameters. Unknown keys are passed
// through; the server decides what is valid.
func (s LogsService) ListWithParams(ctx context.Context, params query.Params) (*Page[LogEntry], error) {
	return listLogs(ctx, s.Client, query.Encode(params))
}

func listLogs(ctx context.Context, c *Client, qs string) (*Page[LogEntry], error) {
	var result Page[LogEntry]
	if err := c.do(ctx, http.MethodGet, query.Append(logsPath, qs), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
