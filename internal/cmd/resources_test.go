package cmd

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tagsPage = `{"items": [
	{"id": "t1", "name": "prod", "color": "#16a34a", "total_cost_usd": 120.5, "request_count": 900},
	{"id": "t2", "name": "staging", "total_cost_usd": 4, "request_count": 30}
], "total": 2, "page": 1, "page_size": 100, "has_more": false}`

// bodyRecorder captures the JSON body of a request and replies with resp.
func bodyRecorder(dst *map[string]any, status int, resp string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, dst)
		jsonResponse(status, resp)(w, r)
	}
}

func runCmd(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	stdout, stderr = captureOutput(t, func() {
		err = Execute(context.Background(), args)
	})
	return stdout, stderr, err
}

func TestTagsList(t *testing.T) {
	handler := newRouteHandler().On("GET", "/api/tags", jsonResponse(200, tagsPage))
	setupTestEnvWithHandler(t, handler)

	stdout, _, err := runCmd(t, "tags", "list", "--search", "pro", "--limit", "10")
	require.NoError(t, err)

	q := handler.last("GET", "/api/tags").URL.Query()
	assert.Equal(t, "pro", q.Get("search"))
	assert.Equal(t, "10", q.Get("page_size"))
	assert.Contains(t, stdout, "prod")
	assert.Contains(t, stdout, "$120.50")
	assert.Contains(t, stdout, "staging")
}

func TestTagsCreate(t *testing.T) {
	var body map[string]any
	handler := newRouteHandler().
		On("POST", "/api/tags", bodyRecorder(&body, 201, `{"id": "t9", "name": "batch", "color": "#abc"}`))
	setupTestEnvWithHandler(t, handler)

	stdout, _, err := runCmd(t, "tags", "create", "batch", "--color", "#abc")
	require.NoError(t, err)
	assert.Equal(t, "batch", body["name"])
	assert.Equal(t, "#abc", body["color"])
	assert.Contains(t, stdout, "Created tag t9 (batch)")
}

func TestTagsCreate_InvalidColor(t *testing.T) {
	handler := newRouteHandler()
	setupTestEnvWithHandler(t, handler)

	_, _, err := runCmd(t, "tags", "create", "batch", "--color", "green")
	require.Error(t, err)
	assert.Equal(t, exitUsage, ExitCode(err))
	assert.Zero(t, handler.count("POST", "/api/tags"))
}

func TestTagsDelete_FuzzyName(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/api/tags", jsonResponse(200, tagsPage)).
		On("DELETE", "/api/tags/t2", jsonResponse(204, ``))
	setupTestEnvWithHandler(t, handler)

	stdout, _, err := runCmd(t, "tags", "delete", "stag")
	require.NoError(t, err)
	assert.Equal(t, 1, handler.count("DELETE", "/api/tags/t2"))
	assert.Contains(t, stdout, "Deleted tag t2")
}

func TestTagsDelete_ByID(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/api/tags", jsonResponse(200, tagsPage)).
		On("DELETE", "/api/tags/t1", jsonResponse(204, ``))
	setupTestEnvWithHandler(t, handler)

	stdout, _, err := runCmd(t, "tags", "delete", "t1", "--json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, true, got["deleted"])
	assert.Equal(t, "t1", got["id"])
}

func TestTagsDelete_Ambiguous(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/api/tags", jsonResponse(200, `{"items": [
			{"id": "t1", "name": "prod"},
			{"id": "t2", "name": "PROD"}
		], "has_more": false}`))
	setupTestEnvWithHandler(t, handler)

	_, stderr, err := runCmd(t, "tags", "delete", "prod")
	require.Error(t, err)
	assert.Equal(t, exitUsage, ExitCode(err))
	assert.Contains(t, stderr, "ambiguous match")
	assert.Contains(t, stderr, "t1: prod")
	assert.Contains(t, stderr, "t2: PROD")
	assert.Zero(t, handler.count("DELETE", "/api/tags/t1"))
	assert.Zero(t, handler.count("DELETE", "/api/tags/t2"))
}

func TestTagsDelete_NotFound(t *testing.T) {
	handler := newRouteHandler().On("GET", "/api/tags", jsonResponse(200, tagsPage))
	setupTestEnvWithHandler(t, handler)

	_, stderr, err := runCmd(t, "tags", "delete", "zzz")
	require.Error(t, err)
	assert.Equal(t, exitNotFound, ExitCode(err))
	assert.Contains(t, stderr, `no tag found matching "zzz"`)
}

func TestTagsDelete_PagesThroughAll(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/api/tags", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("page") == "2" {
				jsonResponse(200, `{"items": [{"id": "t7", "name": "archive"}], "page": 2, "has_more": false}`)(w, r)
				return
			}
			jsonResponse(200, `{"items": [{"id": "t1", "name": "prod"}], "page": 1, "has_more": true}`)(w, r)
		}).
		On("DELETE", "/api/tags/t7", jsonResponse(204, ``))
	setupTestEnvWithHandler(t, handler)

	_, _, err := runCmd(t, "tags", "delete", "archive")
	require.NoError(t, err)
	assert.Equal(t, 2, handler.count("GET", "/api/tags"))
	assert.Equal(t, 1, handler.count("DELETE", "/api/tags/t7"))
}

func TestBudgetsList(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/api/budgets", jsonResponse(200, `[
			{"id": "b1", "name": "team-ml", "limit_usd": 500, "spent_usd": 450, "period": "monthly", "provider": "openai"}
		]`))
	setupTestEnvWithHandler(t, handler)

	stdout, _, err := runCmd(t, "budgets", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "team-ml")
	assert.Contains(t, stdout, "$450.00")
	assert.Contains(t, stdout, "$500.00")
	assert.Contains(t, stdout, "90%")
}

func TestBudgetsCreate(t *testing.T) {
	var body map[string]any
	handler := newRouteHandler().
		On("POST", "/api/budgets", bodyRecorder(&body, 201, `{"id": "b2", "name": "team-ml", "limit_usd": 250, "period": "weekly"}`))
	setupTestEnvWithHandler(t, handler)

	stdout, _, err := runCmd(t, "budgets", "create", "team-ml", "--limit", "250", "--period", "Weekly", "--provider", "anthropic")
	require.NoError(t, err)
	assert.Equal(t, "team-ml", body["name"])
	assert.Equal(t, float64(250), body["limit_usd"])
	assert.Equal(t, "weekly", body["period"])
	assert.Equal(t, "anthropic", body["provider"])
	assert.Contains(t, stdout, "Created budget b2 (team-ml)")
}

func TestBudgetsCreate_Validation(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"missing limit", []string{"budgets", "create", "x"}, `required flag(s) "limit" not set`},
		{"zero limit", []string{"budgets", "create", "x", "--limit", "0"}, "--limit must be greater than 0"},
		{"bad period", []string{"budgets", "create", "x", "--limit", "5", "--period", "yearly"}, "--period must be one of"},
		{"empty name", []string{"budgets", "create", " ", "--limit", "5"}, "name is required"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newRouteHandler()
			setupTestEnvWithHandler(t, handler)

			_, _, err := runCmd(t, tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
			assert.Equal(t, exitUsage, ExitCode(err))
			assert.Zero(t, handler.count("POST", "/api/budgets"))
		})
	}
}

func TestKeysCreate_ShowsSecretOnce(t *testing.T) {
	var body map[string]any
	handler := newRouteHandler().
		On("POST", "/api/keys", bodyRecorder(&body, 201, `{"id": "k1", "name": "ci", "prefix": "cl_live_ab", "key": "cl_live_abcdef123456", "created_at": "2026-01-28T10:00:00Z"}`))
	setupTestEnvWithHandler(t, handler)

	stdout, stderr, err := runCmd(t, "keys", "create", "ci")
	require.NoError(t, err)
	assert.Equal(t, "ci", body["name"])
	assert.Contains(t, stdout, "cl_live_abcdef123456")
	assert.Contains(t, stderr, "will not be shown again")
}

func TestKeysList(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/api/keys", jsonResponse(200, `[
			{"id": "k1", "name": "ci", "prefix": "cl_live_ab", "created_at": "2026-01-20T10:00:00Z"},
			{"id": "k2", "name": "dev", "prefix": "cl_live_cd", "created_at": "2026-01-21T10:00:00Z", "last_used_at": "2026-01-27T08:00:00Z"}
		]`))
	setupTestEnvWithHandler(t, handler)

	stdout, _, err := runCmd(t, "keys", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "cl_live_ab...")
	assert.Contains(t, stdout, "never")
}

func TestKeysDelete_ByName(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/api/keys", jsonResponse(200, `[{"id": "k1", "name": "ci"}, {"id": "k2", "name": "dev"}]`)).
		On("DELETE", "/api/keys/k2", jsonResponse(204, ``))
	setupTestEnvWithHandler(t, handler)

	stdout, _, err := runCmd(t, "keys", "revoke", "dev")
	require.NoError(t, err)
	assert.Equal(t, 1, handler.count("DELETE", "/api/keys/k2"))
	assert.Contains(t, stdout, "Revoked key k2")
}

func TestWebhooksCreate(t *testing.T) {
	var body map[string]any
	handler := newRouteHandler().
		On("POST", "/api/webhooks", bodyRecorder(&body, 201, `{"id": "w1", "url": "https://hooks.example.com/costs", "events": ["budget.exceeded", "anomaly.detected"]}`))
	setupTestEnvWithHandler(t, handler)

	stdout, _, err := runCmd(t, "webhooks", "create", "https://hooks.example.com/costs",
		"--event", "Budget.Exceeded,anomaly.detected", "--event", "budget.exceeded")
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.example.com/costs", body["url"])
	assert.Equal(t, []any{"budget.exceeded", "anomaly.detected"}, body["events"])
	assert.Contains(t, stdout, "Created webhook w1")
}

func TestWebhooksCreate_Validation(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"bad scheme", []string{"webhooks", "create", "ftp://hooks.example.com", "--event", "budget.exceeded"}, "invalid webhook URL"},
		{"private ip", []string{"webhooks", "create", "http://10.0.0.5/hook", "--event", "budget.exceeded"}, "private IP"},
		{"metadata host", []string{"webhooks", "create", "http://169.254.169.254/latest", "--event", "budget.exceeded"}, "invalid webhook URL"},
		{"unknown event", []string{"webhooks", "create", "https://hooks.example.com", "--event", "spend.spiked"}, `invalid event "spend.spiked"`},
		{"missing event", []string{"webhooks", "create", "https://hooks.example.com"}, `required flag(s) "event" not set`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newRouteHandler()
			setupTestEnvWithHandler(t, handler)

			_, _, err := runCmd(t, tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
			assert.Equal(t, exitUsage, ExitCode(err))
			assert.Zero(t, handler.count("POST", "/api/webhooks"))
		})
	}
}

func TestWebhooksDelete_ByURL(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/api/webhooks", jsonResponse(200, `[
			{"id": "w1", "url": "https://hooks.example.com/costs", "events": ["budget.exceeded"]},
			{"id": "w2", "url": "https://alerts.example.org/in", "events": ["anomaly.detected"]}
		]`)).
		On("DELETE", "/api/webhooks/w2", jsonResponse(204, ``))
	setupTestEnvWithHandler(t, handler)

	_, _, err := runCmd(t, "webhooks", "delete", "https://alerts.example.org/in")
	require.NoError(t, err)
	assert.Equal(t, 1, handler.count("DELETE", "/api/webhooks/w2"))
}

func TestWebhooksList_Empty(t *testing.T) {
	handler := newRouteHandler().On("GET", "/api/webhooks", jsonResponse(200, `[]`))
	setupTestEnvWithHandler(t, handler)

	stdout, stderr, err := runCmd(t, "webhooks", "list")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "No webhooks.")
}

func TestDeleteRequiresSession(t *testing.T) {
	handler := newRouteHandler()
	setupTestEnvWithHandler(t, handler)
	t.Setenv("COSTLENS_TOKEN", "")

	_, stderr, err := runCmd(t, "budgets", "delete", "team")
	require.Error(t, err)
	assert.Equal(t, exitAuth, ExitCode(err))
	assert.Contains(t, stderr, "Not logged in.")
	assert.Zero(t, handler.count("GET", "/api/budgets"))
}
