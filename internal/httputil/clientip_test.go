package httputil

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		expected   string
	}{
		{"remote addr only", "192.0.2.1:34567", "", "", "192.0.2.1"},
		{"remote addr without port", "192.0.2.1", "", "", "192.0.2.1"},
		{"x-forwarded-for single", "10.0.0.1:80", "203.0.113.7", "", "203.0.113.7"},
		{"x-forwarded-for chain", "10.0.0.1:80", "203.0.113.7, 10.0.0.2, 10.0.0.3", "", "203.0.113.7"},
		{"x-forwarded-for padded", "10.0.0.1:80", "  203.0.113.7 , 10.0.0.2", "", "203.0.113.7"},
		{"x-real-ip fallback", "10.0.0.1:80", "", "203.0.113.9", "203.0.113.9"},
		{"xff wins over xri", "10.0.0.1:80", "203.0.113.7", "203.0.113.9", "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}

			assert.Equal(t, tt.expected, GetClientIP(r))
		})
	}
}
