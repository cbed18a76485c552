package logger

import "testing"

func TestBuildAndCompactRID(t *testing.T) {
	rid := BuildRID(123, 456, 789)
	if rid != "123:456:789" {
		t.Fatalf("BuildRID = %s", rid)
	}
	compact := CompactRID(rid)
	if compact == rid || compact == "" {
		t.Fatalf("CompactRID did not compact: %s", compact)
	}
	// Malformed inputs pass through untouched.
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Fatalf("CompactRID(malformed) = %s", got)
	}
	if got := CompactRID("a:b:c"); got != "a:b:c" {
		t.Fatalf("CompactRID(non-numeric) = %s", got)
	}
}

func TestContextMeta(t *testing.T) {
	ctx := WithRID(Background(), "1:2:3")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)
	ctx = WithHandler(ctx, "view")

	if got := RIDFrom(ctx); got != "1:2:3" {
		t.Fatalf("RIDFrom = %s", got)
	}
	if got := UpdateIDFrom(ctx); got != 42 {
		t.Fatalf("UpdateIDFrom = %d", got)
	}
	if got := UserIDFrom(ctx); got != 7 {
		t.Fatalf("UserIDFrom = %d", got)
	}
	if got := ChatIDFrom(ctx); got != 9 {
		t.Fatalf("ChatIDFrom = %d", got)
	}
	if got := HandlerFrom(ctx); got != "view" {
		t.Fatalf("HandlerFrom = %s", got)
	}
}

func TestSanitizeLimit(t *testing.T) {
	in := "ab\x00c\td\ne\x7f"
	if got := Sanitize(in); got != "abc\td\ne" {
		t.Fatalf("Sanitize = %q", got)
	}
	if got := SanitizeLimit("hello world", 5); got != "hello" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if got := SanitizeLimit("hi", 0); got != "" {
		t.Fatalf("SanitizeLimit(0) = %q", got)
	}
}
