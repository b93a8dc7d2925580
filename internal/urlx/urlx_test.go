package urlx

import "testing"

func TestWithoutHTTP(t *testing.T) {
	cases := map[string]string{
		"":                                  "",
		"http://example.com":                "example.com",
		"https://example.com":               "example.com",
		"http://example.com?foo=bar#anchor": "example.com?foo=bar#anchor",
		"example.com":                       "example.com",
	}
	for in, want := range cases {
		if got := WithoutHTTP(in); got != want {
			t.Fatalf("WithoutHTTP(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAddSchemeIfMissing(t *testing.T) {
	if got := AddSchemeIfMissing("example.com/path", "https"); got != "https://example.com/path" {
		t.Fatalf("expected scheme to be added, got %q", got)
	}
	if got := AddSchemeIfMissing("https://example.com/path", "http"); got != "https://example.com/path" {
		t.Fatalf("expected existing scheme kept, got %q", got)
	}
}

func TestSetURLScheme(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "http://example.com/path", want: "http://example.com/path"},
		{in: "example.com/path", want: "http://example.com/path"},
		{in: "https://example.com/path", want: "http://example.com/path"},
	}
	for _, tc := range cases {
		if got := SetURLScheme(tc.in, "http"); got != tc.want {
			t.Fatalf("SetURLScheme(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestToSlugAndHostname(t *testing.T) {
	if got := ToSlug("https://testtwosites2014.wordpress.com/path/to/site"); got != "testtwosites2014.wordpress.com::path::to::site" {
		t.Fatalf("unexpected slug %q", got)
	}
	if got := Hostname("https://example.wordpress.com/blog"); got != "example.wordpress.com" {
		t.Fatalf("unexpected hostname %q", got)
	}
	if !IsHTTPS("https://example.com") || IsHTTPS("http://example.com") {
		t.Fatalf("unexpected IsHTTPS result")
	}
}
