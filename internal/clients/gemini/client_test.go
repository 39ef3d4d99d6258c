package gemini

import (
	"encoding/json"
	"testing"
)

func TestCleanJSONStringFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "json fence",
			in:   "```json\n{\"summary\":\"ok\"}\n```",
			want: `{"summary":"ok"}`,
		},
		{
			name: "bare fence",
			in:   "```\n{\"summary\":\"ok\"}\n```",
			want: `{"summary":"ok"}`,
		},
		{
			name: "leading prose",
			in:   "Here is the analysis you asked for:\n{\"score\": 70}",
			want: `{"score": 70}`,
		},
		{
			name: "trailing prose",
			in:   "{\"score\": 70}\nLet me know if you need anything else.",
			want: `{"score": 70}`,
		},
		{
			name: "array payload",
			in:   "```json\n[{\"a\":1},{\"a\":2}]\n```",
			want: `[{"a":1},{"a":2}]`,
		},
		{
			name: "plain json untouched",
			in:   `{"a":1}`,
			want: `{"a":1}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CleanJSONString(tc.in)
			if got != tc.want {
				t.Fatalf("CleanJSONString(%q) = %q, want %q", tc.in, got, tc.want)
			}
			if !json.Valid([]byte(got)) {
				t.Fatalf("cleaned output is not valid JSON: %q", got)
			}
		})
	}
}

func TestCleanJSONStringStripsControlChars(t *testing.T) {
	in := "{\"text\":\"hello\"}\x00\x07"
	got := CleanJSONString(in)
	if got != `{"text":"hello"}` {
		t.Fatalf("got %q", got)
	}
}

func TestCleanJSONStringStripsBOM(t *testing.T) {
	in := "\uFEFF{\"a\":1}"
	got := CleanJSONString(in)
	if got != `{"a":1}` {
		t.Fatalf("got %q", got)
	}
}
