package geoip

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{
			name:       "first forwarded address wins",
			forwarded:  "203.0.113.7, 10.0.0.1",
			remoteAddr: "10.0.0.2:4567",
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded with spaces",
			forwarded:  "  203.0.113.7 ",
			remoteAddr: "10.0.0.2:4567",
			want:       "203.0.113.7",
		},
		{
			name:       "remote addr without forwarded",
			remoteAddr: "198.51.100.3:80",
			want:       "198.51.100.3",
		},
		{
			name:       "ipv4-mapped prefix stripped",
			forwarded:  "::ffff:198.51.100.3",
			remoteAddr: "10.0.0.2:4567",
			want:       "198.51.100.3",
		},
		{
			name:       "ipv6 remote addr unbracketed",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &http.Request{
				Header:     http.Header{},
				RemoteAddr: tt.remoteAddr,
			}
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}
