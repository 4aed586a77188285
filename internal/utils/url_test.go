package utils

import "testing"

func TestFirstURL(t *testing.T) {
	url, ok := FirstURL("check https://example.com/a and http://other.org")
	if !ok || url != "https://example.com/a" {
		t.Fatalf("unexpected first url %q (ok=%t)", url, ok)
	}

	if _, ok := FirstURL("no links here, not even ftp://old.example"); ok {
		t.Fatalf("expected no match")
	}
}

func TestNormalizeHost(t *testing.T) {
	host, err := NormalizeHost("HTTPS://ExAmple.COM/path?x=1")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if host != "example.com" {
		t.Fatalf("expected example.com, got %q", host)
	}

	host, err = NormalizeHost("bücher.example")
	if err != nil {
		t.Fatalf("normalize idn: %v", err)
	}
	if host != "xn--bcher-kva.example" {
		t.Fatalf("expected punycode host, got %q", host)
	}
}
