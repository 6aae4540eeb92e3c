package jsonutil

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{
			name: "clean object",
			in:   `{"a":1}`,
			want: `{"a":1}`,
			ok:   true,
		},
		{
			name: "clean array",
			in:   `[1,2,3]`,
			want: `[1,2,3]`,
			ok:   true,
		},
		{
			name: "fenced json block",
			in:   "```json\n{\"score\": 80}\n```",
			want: `{"score": 80}`,
			ok:   true,
		},
		{
			name: "object wrapped in prose",
			in:   `Sure! Here is the assessment: {"level": 7} Hope that helps.`,
			want: `{"level": 7}`,
			ok:   true,
		},
		{
			name: "trailing comma in object",
			in:   `{"a":1,}`,
			want: `{"a":1}`,
			ok:   true,
		},
		{
			name: "trailing comma in nested array",
			in:   `{"xs":[1,2,],}`,
			want: `{"xs":[1,2]}`,
			ok:   true,
		},
		{
			name: "comma inside string survives",
			in:   `{"a":"x, ]",}`,
			want: `{"a":"x, ]"}`,
			ok:   true,
		},
		{
			name: "raw control character stripped",
			in:   "{\"a\":\"b\x00c\"}",
			want: `{"a":"bc"}`,
			ok:   true,
		},
		{
			name: "stray backslash escaped",
			in:   `{"path":"C:\Users\go"}`,
			want: `{"path":"C:\\Users\\go"}`,
			ok:   true,
		},
		{
			name: "not json at all",
			in:   "not json at all",
			ok:   false,
		},
		{
			name: "truncated object unrecoverable",
			in:   `{"a":`,
			ok:   false,
		},
		{
			name: "empty input",
			in:   "",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.in)
			if ok != tt.ok {
				t.Fatalf("Extract(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if !tt.ok {
				if got != nil {
					t.Errorf("Extract(%q) = %s, want nil", tt.in, got)
				}
				return
			}
			var gotVal, wantVal any
			if err := json.Unmarshal(got, &gotVal); err != nil {
				t.Fatalf("recovered value does not parse: %v", err)
			}
			if err := json.Unmarshal([]byte(tt.want), &wantVal); err != nil {
				t.Fatalf("bad want in test: %v", err)
			}
			if !reflect.DeepEqual(gotVal, wantVal) {
				t.Errorf("Extract(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractInto(t *testing.T) {
	var out struct {
		Goals   []string `json:"goals"`
		Summary string   `json:"summary"`
	}
	text := "```json\n{\"goals\":[\"learn Go\",],\"summary\":\"steady progress\"}\n```"
	if !ExtractInto(text, &out) {
		t.Fatalf("ExtractInto(%q) failed", text)
	}
	if len(out.Goals) != 1 || out.Goals[0] != "learn Go" {
		t.Errorf("goals = %v, want [learn Go]", out.Goals)
	}
	if out.Summary != "steady progress" {
		t.Errorf("summary = %q, want %q", out.Summary, "steady progress")
	}

	if ExtractInto("no value here", &out) {
		t.Error("ExtractInto on plain prose should fail")
	}
}

func TestStripTrailingCommas(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1,}`, `{"a":1}`},
		{`[1, 2 ,]`, `[1, 2 ]`},
		{`{"a":"b,"}`, `{"a":"b,"}`},
		{"{\"a\":1,\n}", "{\"a\":1\n}"},
	}
	for _, tt := range tests {
		if got := stripTrailingCommas(tt.in); got != tt.want {
			t.Errorf("stripTrailingCommas(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
