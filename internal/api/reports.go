package api

import (
	"context"
	"net/http"

	"github.com/costlens/costlens-cli/internal/query"
)

// Stats returns spend totals.
func (s ReportsService) Stats(ctx context.Context) (*Stats, error) {
	var result Stats
	if err := s.do(ctx, http.MethodGet, "/api/stats", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Anomalies returns detected cost anomalies within the range.
func (s ReportsService) Anomalies(ctx context.Context, filter RangeFilter) ([]Anomaly, error) {
	var result []Anomaly
	if err := getRange(ctx, s.Client, "/api/anomalies", filter, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s ReportsService) Recommendations(ctx context.Context) ([]Recommendation, error) {
	var result []Recommendation
	if err := s.do(ctx, http.MethodGet, "/api/recommendations", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Heatmap returns spend by weekday and hour.
func (s ReportsService) Heatmap(ctx context.Context, filter RangeFilter) ([]HeatmapCell, error) {
	var result []HeatmapCell
	if err := getRange(ctx, s.Client, "/api/heatmap", filter, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Comparison returns spend grouped by provider and model.
func (s ReportsService) Comparison(ctx context.Context, filter RangeFilter) ([]ComparisonEntry, error) {
	var result []ComparisonEntry
	if err := getRange(ctx, s.Client, "/api/comparison", filter, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s ReportsService) Forecast(ctx context.Context) (*Forecast, error) {
	var result Forecast
	if err := s.do(ctx, http.MethodGet, "/api/forecast", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func getRange(ctx context.Context, c *Client, path string, filter RangeFilter, result any) error {
	qs, err := query.EncodeStruct(filter)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodGet, query.Append(path, qs), nil, result)
}
