package env

import "testing"

func TestGet(t *testing.T) {
	t.Setenv("SHOPEAZY_TEST_SET", " console ")
	t.Setenv("SHOPEAZY_TEST_BLANK", "   ")

	if got := Get("SHOPEAZY_TEST_SET", "json"); got != "console" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	if got := Get("SHOPEAZY_TEST_BLANK", "json"); got != "json" {
		t.Fatalf("blank value should fall back, got %q", got)
	}
	if got := Get("SHOPEAZY_TEST_UNSET_KEY", "json"); got != "json" {
		t.Fatalf("unset value should fall back, got %q", got)
	}
}
