package sanitize

import (
	"strings"
	"testing"
)

func TestText_StripsMarkup(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Best color?", "Best color?"},
		{"  padded  ", "padded"},
		{"<script>alert(1)</script>Best?", "Best?"},
		{"<b>bold</b> question", "bold question"},
		{"<img src=x onerror=alert(1)>plain", "plain"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := Text(tc.in, 500); got != tc.want {
			t.Errorf("Text(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestText_ClipsToMaxRunes(t *testing.T) {
	long := strings.Repeat("é", 600)
	got := Text(long, 500)
	if n := len([]rune(got)); n != 500 {
		t.Fatalf("clipped length = %d runes, want 500", n)
	}
	// maxRunes <= 0 disables clipping
	if got := Text(long, 0); len([]rune(got)) != 600 {
		t.Fatalf("unclipped input was modified")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  A@X.Com "); got != "a@x.com" {
		t.Fatalf("NormalizeEmail = %q", got)
	}
}

func TestValidEmail(t *testing.T) {
	valid := []string{"a@x.com", "first.last+tag@sub.example.org", "u_1%x@host.io"}
	for _, s := range valid {
		if !ValidEmail(s) {
			t.Errorf("ValidEmail(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "a@x", "no-at.example.com", "@x.com", "a@.com", "a b@x.com"}
	for _, s := range invalid {
		if ValidEmail(s) {
			t.Errorf("ValidEmail(%q) = true, want false", s)
		}
	}
}
