package outfmt

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", Text, false},
		{"text", Text, false},
		{"JSON", JSON, false},
		{"ndjson", JSONL, false},
		{"jsonl", JSONL, false},
		{"yaml", Text, true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestModeFromContext_Default(t *testing.T) {
	if ModeFromContext(context.Background()) != Text {
		t.Error("default mode should be text")
	}
	if IsJSON(context.Background()) {
		t.Error("default should not be JSON")
	}
	if !IsJSON(WithMode(context.Background(), JSONL)) {
		t.Error("jsonl is a JSON mode")
	}
}

type budget struct {
	Name     string  `json:"name"`
	LimitUSD float64 `json:"limit_usd"`
}

func TestApplyQuery(t *testing.T) {
	data := []budget{{"team-a", 100}, {"team-b", 50}}

	got, err := ApplyQuery(data, ".[] | select(.limit_usd > 60) | .name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "team-a" {
		t.Errorf("got %v", got)
	}

	got, err = ApplyQuery(data, ".[].name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names, ok := got.([]any)
	if !ok || len(names) != 2 {
		t.Errorf("expected two results, got %#v", got)
	}
}

func TestApplyQuery_ShellEscapes(t *testing.T) {
	got, err := ApplyQuery([]budget{{"a", 1}, {"b", 2}}, `[.[] | select(.name \!= "a")] | length`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Errorf("got %v", got)
	}
}

func TestApplyQuery_Invalid(t *testing.T) {
	if _, err := ApplyQuery(map[string]int{"a": 1}, ".["); err == nil {
		t.Error("expected parse error")
	}
	if _, err := ApplyQuery(map[string]int{"a": 1}, ".a.b"); err == nil {
		t.Error("expected runtime error")
	}
}

func TestWriteJSONFiltered_NilSlice(t *testing.T) {
	var buf bytes.Buffer
	var empty []budget
	if err := WriteJSONFiltered(&buf, empty, "", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("got %q", buf.String())
	}
}

func TestFormatter_Output_JSON(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithQuery(WithMode(context.Background(), JSON), ".name")
	f := NewFormatter(ctx, &buf, &buf)

	if err := f.Output(budget{Name: "ops"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(buf.String()) != `"ops"` {
		t.Errorf("got %q", buf.String())
	}
}

func TestFormatter_Output_JSONL(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithMode(context.Background(), JSONL), &buf, &buf)

	if err := f.Output([]budget{{"a", 1}, {"b", 2}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || lines[0] != `{"limit_usd":1,"name":"a"}` {
		t.Errorf("unexpected lines: %q", lines)
	}
}

func TestFormatter_Table(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithMode(context.Background(), Text), &buf, &buf)

	if !f.StartTable([]string{"ID", "NAME"}) {
		t.Fatal("text mode should render tables")
	}
	f.Row("b1", "team")
	_ = f.EndTable()

	if !strings.Contains(buf.String(), "ID") || !strings.Contains(buf.String(), "team") {
		t.Errorf("unexpected table: %q", buf.String())
	}
}

func TestFormatter_TableSkippedInJSON(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithMode(context.Background(), JSON), &buf, &buf)
	if f.StartTable([]string{"ID"}) {
		t.Error("JSON mode should not render tables")
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestFormatter_Empty(t *testing.T) {
	var out, errOut bytes.Buffer
	f := NewFormatter(context.Background(), &out, &errOut)
	f.Empty("No budgets found")
	if !strings.Contains(errOut.String(), "No budgets found") || out.Len() != 0 {
		t.Error("empty message should be written to stderr only")
	}
}

func TestUSD(t *testing.T) {
	tests := map[float64]string{
		0:       "$0.00",
		12.3:    "$12.30",
		0.00123: "$0.0012",
		1500:    "$1500.00",
	}
	for in, want := range tests {
		if got := USD(in); got != want {
			t.Errorf("USD(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestUsageBar(t *testing.T) {
	bar := UsageBar(50, 10)
	if !strings.Contains(bar, "#####.....") || !strings.Contains(bar, "50%") {
		t.Errorf("unexpected bar %q", bar)
	}
	over := UsageBar(150, 4)
	if !strings.Contains(over, "####") || !strings.Contains(over, "150%") {
		t.Errorf("unexpected bar %q", over)
	}
}
