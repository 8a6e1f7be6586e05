package common

import "testing"

func TestRedact(t *testing.T) {
	cases := map[string]string{
		"":                      "",
		"abc":                   "***",
		"12345678":              "********",
		"eyJ0eXAiOiJKV1QiLCJhb": "****CJhb",
	}
	for in, want := range cases {
		if got := Redact(in); got != want {
			t.Fatalf("Redact(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncateBody(t *testing.T) {
	if got := TruncateBody("  short  ", 10); got != "short" {
		t.Fatalf("expected trimmed body, got %q", got)
	}
	if got := TruncateBody("0123456789abc", 10); got != "0123456789...(truncated)" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := TruncateBody("0123456789abc", 0); got != "0123456789abc" {
		t.Fatalf("max <= 0 should not truncate, got %q", got)
	}
}
