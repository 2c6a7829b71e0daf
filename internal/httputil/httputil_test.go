package httputil

import (
	"testing"
)

func TestIsValidStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{99, false},
		{100, true},
		{200, true},
		{418, true},
		{599, true},
		{600, false},
		{0, false},
	}

	for _, tt := range tests {
		if got := IsValidStatus(tt.code); got != tt.want {
			t.Errorf("IsValidStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestIsMethod(t *testing.T) {
	for _, m := range Methods {
		if !IsMethod(m) {
			t.Errorf("IsMethod(%q) = false, want true", m)
		}
	}
	for _, key := range []string{"parameters", "summary", "GET", "x-extension", ""} {
		if IsMethod(key) {
			t.Errorf("IsMethod(%q) = true, want false", key)
		}
	}
}

func TestMediaType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        string
	}{
		{"empty", "", ""},
		{"plain", "application/json", "application/json"},
		{"with charset", "text/plain; charset=utf-8", "text/plain"},
		{"uppercase", "Application/JSON", "application/json"},
		{"unparseable", "text/plain;;=", "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MediaType(tt.contentType); got != tt.want {
				t.Errorf("MediaType(%q) = %q, want %q", tt.contentType, got, tt.want)
			}
		})
	}
}

func TestIsJSON(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"application/json", true},
		{"application/json; charset=utf-8", true},
		{"application/problem+json", true},
		{"application/vnd.api+json", true},
		{"text/plain", false},
		{"application/xml", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsJSON(tt.contentType); got != tt.want {
			t.Errorf("IsJSON(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}

func TestIsText(t *testing.T) {
	if !IsText("text/html; charset=utf-8") {
		t.Error("text/html should be text")
	}
	if IsText("application/json") {
		t.Error("application/json should not be text")
	}
}
