package horosafe

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateHTTPURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com/", false},
		{"http://127.0.0.1:8080/landing", false},
		{"ftp://example.com/file", true},
		{"javascript:alert(1)", true},
		{"file:///etc/passwd", true},
		{"https://", true},
		{"example.com", true},
		{"%zz", true},
	}
	for _, tt := range tests {
		err := ValidateHTTPURL(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateHTTPURL(%q) error=%v, wantErr=%v", tt.url, err, tt.wantErr)
		}
	}
	if err := ValidateHTTPURL("ftp://x/"); !errors.Is(err, ErrUnsafeScheme) {
		t.Fatalf("scheme: got %v, want ErrUnsafeScheme", err)
	}
}

func TestValidateIdentifier(t *testing.T) {
	valid := []string{"home", "page-3", "blog_post.v2"}
	for _, s := range valid {
		if err := ValidateIdentifier(s); err != nil {
			t.Errorf("ValidateIdentifier(%q): unexpected error %v", s, err)
		}
	}
	invalid := []string{"", "..", "a/b", "has space", "q?x", strings.Repeat("a", MaxIdentifierLen+1)}
	for _, s := range invalid {
		if err := ValidateIdentifier(s); err == nil {
			t.Errorf("ValidateIdentifier(%q): expected error", s)
		}
	}
}

func TestLimitedReadAll(t *testing.T) {
	data, err := LimitedReadAll(strings.NewReader("hello"), 5)
	if err != nil || string(data) != "hello" {
		t.Fatalf("at limit: got %q %v", data, err)
	}
	if _, err := LimitedReadAll(strings.NewReader("hello!"), 5); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("over limit: got %v, want ErrTooLarge", err)
	}
}
