package httpio

import "testing"

func TestParseCookiesSimple(t *testing.T) {
	cookies := ParseCookies("session=abc123; theme=dark")
	if len(cookies) != 2 {
		t.Fatalf("got %d cookies, want 2", len(cookies))
	}
	if cookies[0].Name != "session" || cookies[0].Value != "abc123" {
		t.Errorf("cookie[0] = %+v", cookies[0])
	}
	if cookies[1].Name != "theme" || cookies[1].Value != "dark" {
		t.Errorf("cookie[1] = %+v", cookies[1])
	}
}

func TestParseCookiesVersionedWithAttributes(t *testing.T) {
	header := `$Version="1"; session="abc123"; $Path="/account"; theme=dark; $Domain=".example.com"`
	cookies := ParseCookies(header)
	if len(cookies) != 2 {
		t.Fatalf("got %d cookies, want 2", len(cookies))
	}
	if cookies[0].Name != "session" || cookies[0].Value != "abc123" {
		t.Fatalf("cookie[0] = %+v", cookies[0])
	}
	if cookies[0].Version != "1" {
		t.Errorf("cookie[0].Version = %q, want 1", cookies[0].Version)
	}
	if cookies[0].Path != "/account" {
		t.Errorf("cookie[0].Path = %q, want /account", cookies[0].Path)
	}
	if cookies[1].Name != "theme" || cookies[1].Domain != ".example.com" {
		t.Errorf("cookie[1] = %+v", cookies[1])
	}
}

func TestParseCookiesSkipsMalformedSegments(t *testing.T) {
	cookies := ParseCookies("valid=1; garbage; also=2")
	if len(cookies) != 2 {
		t.Fatalf("got %d cookies, want 2 (malformed segment should be skipped)", len(cookies))
	}
}
