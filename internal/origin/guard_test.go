package origin

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{"empty allow-list admits all", "https://anything.io", nil, true},
		{"empty allow-list admits missing origin", "", []string{}, true},
		{"exact match", "https://example.com", []string{"example.com"}, true},
		{"subdomain", "https://shop.example.com", []string{"example.com"}, true},
		{"deep subdomain", "https://a.b.example.com", []string{"example.com"}, true},
		{"suffix attack", "https://example.com.evil.com", []string{"example.com"}, false},
		{"prefix attack", "https://notexample.com", []string{"example.com"}, false},
		{"port ignored", "https://example.com:8443", []string{"example.com"}, true},
		{"case insensitive", "https://SHOP.Example.COM", []string{"example.com"}, true},
		{"entry stored as url", "https://example.com", []string{"https://example.com/"}, true},
		{"wildcard entry", "https://shop.example.com", []string{"*.example.com"}, true},
		{"dev domain always allowed", "https://preview-123.lovable.app", []string{"example.com"}, true},
		{"localhost always allowed", "http://localhost:5173", []string{"example.com"}, true},
		{"missing origin rejected", "", []string{"example.com"}, false},
		{"other domain rejected", "https://other.org", []string{"example.com"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Allowed(tt.origin, tt.allowed); got != tt.want {
				t.Errorf("Allowed(%q, %v) = %v, want %v", tt.origin, tt.allowed, got, tt.want)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	if err := Check("https://shop.example.com", []string{"example.com"}); err != nil {
		t.Errorf("Check returned %v, want nil", err)
	}
	if err := Check("https://example.com.evil.com", []string{"example.com"}); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("Check returned %v, want ErrNotAllowed", err)
	}
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	r.Header.Set("Origin", "https://shop.example.com")
	r.Header.Set("Referer", "https://ignored.example.org/page")
	if got := FromRequest(r); got != "https://shop.example.com" {
		t.Errorf("FromRequest = %q", got)
	}

	r = httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	r.Header.Set("Referer", "https://blog.example.com/posts/1?x=y")
	if got := FromRequest(r); got != "https://blog.example.com" {
		t.Errorf("FromRequest referer fallback = %q", got)
	}

	r = httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	if got := FromRequest(r); got != "" {
		t.Errorf("FromRequest with no headers = %q, want empty", got)
	}
}
