package api

import (
	"time"

	"github.com/costlens/costlens-cli/internal/session"
)

// UserProfile is the authenticated user.
type UserProfile = session.UserProfile

// AuthResponse is the result of exchanging an authorization code.
type AuthResponse struct {
	AccessToken string      `json:"access_token"`
	User        UserProfile `json:"user"`
}

// Stats summarizes spend. All amounts are USD.
type Stats struct {
	TodayUSD      float64 `json:"today_usd"`
	MonthUSD      float64 `json:"month_usd"`
	AllTimeUSD    float64 `json:"all_time_usd"`
	RequestsToday int     `json:"requests_today"`
	RequestsMonth int     `json:"requests_month"`
}

// Page is the paginated envelope used by logs and tags.
type Page[T any] struct {
	Items    []T  `json:"items"`
	Total    int  `json:"total"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasMore  bool `json:"has_more"`
}

type Budget struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	LimitUSD  float64   `json:"limit_usd"`
	Period    string    `json:"period"`
	SpentUSD  float64   `json:"spent_usd"`
	Provider  string    `json:"provider,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UsedPercent is the share of the limit already spent.
func (b Budget) UsedPercent() float64 {
	if b.LimitUSD <= 0 {
		return 0
	}
	return b.SpentUSD / b.LimitUSD * 100
}

// CreateBudgetRequest is the body for POST /api/budgets.
type CreateBudgetRequest struct {
	Name     string  `json:"name"`
	LimitUSD float64 `json:"limit_usd"`
	Period   string  `json:"period,omitempty"`
	Provider string  `json:"provider,omitempty"`
}

type Anomaly struct {
	ID          string    `json:"id"`
	DetectedAt  time.Time `json:"detected_at"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	CostUSD     float64   `json:"cost_usd"`
	ExpectedUSD float64   `json:"expected_usd"`
	Severity    string    `json:"severity"`
	Message     string    `json:"message,omitempty"`
}

// LogEntry is one tracked upstream request.
type LogEntry struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	LatencyMS    int       `json:"latency_ms"`
	StatusCode   int       `json:"status_code"`
	Tags         []string  `json:"tags,omitempty"`
}

// LogFilter selects, sorts and pages request logs. Zero fields are omitted.
type LogFilter struct {
	Provider  string   `url:"provider,omitempty"`
	Model     string   `url:"model,omitempty"`
	Tag       string   `url:"tag,omitempty"`
	StartDate string   `url:"start_date,omitempty"`
	EndDate   string   `url:"end_date,omitempty"`
	MinCost   *float64 `url:"min_cost,omitempty"`
	Page      int      `url:"page,omitempty"`
	PageSize  int      `url:"page_size,omitempty"`
	SortBy    string   `url:"sort_by,omitempty"`
	SortOrder string   `url:"sort_order,omitempty"`
}

type Tag struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Color        string  `json:"color,omitempty"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	RequestCount int     `json:"request_count"`
}

// TagFilter pages and searches tags.
type TagFilter struct {
	Search   string `url:"search,omitempty"`
	Page     int    `url:"page,omitempty"`
	PageSize int    `url:"page_size,omitempty"`
}

type Recommendation struct {
	ID                  string  `json:"id"`
	Title               string  `json:"title"`
	Description         string  `json:"description"`
	Provider            string  `json:"provider,omitempty"`
	Model               string  `json:"model,omitempty"`
	EstimatedSavingsUSD float64 `json:"estimated_savings_usd"`
}

// HeatmapCell is spend for one weekday/hour bucket. Weekday 0 is Sunday.
type HeatmapCell struct {
	Weekday  int     `json:"weekday"`
	Hour     int     `json:"hour"`
	CostUSD  float64 `json:"cost_usd"`
	Requests int     `json:"requests"`
}

type ComparisonEntry struct {
	Provider          string  `json:"provider"`
	Model             string  `json:"model"`
	CostUSD           float64 `json:"cost_usd"`
	Requests          int     `json:"requests"`
	AvgCostPerRequest float64 `json:"avg_cost_per_request"`
}

// RangeFilter scopes heatmap, comparison and anomaly reads.
type RangeFilter struct {
	Days     int    `url:"days,omitempty"`
	Provider string `url:"provider,omitempty"`
}

type ForecastPoint struct {
	Date    string  `json:"date"`
	CostUSD float64 `json:"cost_usd"`
}

type Forecast struct {
	ProjectedMonthUSD float64         `json:"projected_month_usd"`
	DailyAverageUSD   float64         `json:"daily_average_usd"`
	DaysRemaining     int             `json:"days_remaining"`
	Points            []ForecastPoint `json:"points,omitempty"`
}

// APIKey is a proxy key. Key is only populated in the create response.
type APIKey struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Prefix     string     `json:"prefix"`
	Key        string     `json:"key,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

type Webhook struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

type CreateTagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}
