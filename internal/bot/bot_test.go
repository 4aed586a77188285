package bot

import (
	"testing"

	"github.com/CreeperRick/Discord-Bot/internal/automod"
)

func TestAutomodReasonUsesNormalizedHost(t *testing.T) {
	verdict := automod.Verdict{
		Violation: true,
		Rule:      automod.RuleLink,
		Matched:   "https://ExAmple.COM/scam?x=1",
	}

	got := automodReason(verdict)
	want := "link not allowed: example.com"
	if got != want {
		t.Fatalf("automodReason = %q, want %q", got, want)
	}
}

func TestAutomodReasonInternationalizedHost(t *testing.T) {
	verdict := automod.Verdict{
		Violation: true,
		Rule:      automod.RuleLink,
		Matched:   "https://bücher.example/offer",
	}

	got := automodReason(verdict)
	want := "link not allowed: xn--bcher-kva.example"
	if got != want {
		t.Fatalf("automodReason = %q, want %q", got, want)
	}
}

func TestParseToggle(t *testing.T) {
	cases := []struct {
		value   string
		enabled bool
		ok      bool
	}{
		{"on", true, true},
		{"ON", true, true},
		{"true", true, true},
		{"yes", true, true},
		{"1", true, true},
		{" off ", false, true},
		{"false", false, true},
		{"no", false, true},
		{"0", false, true},
		{"ture", false, false},
		{"enable", false, false},
		{"", false, false},
	}
	for _, tc := range cases {
		enabled, ok := parseToggle(tc.value)
		if enabled != tc.enabled || ok != tc.ok {
			t.Errorf("parseToggle(%q) = (%v, %v), want (%v, %v)", tc.value, enabled, ok, tc.enabled, tc.ok)
		}
	}
}
