package client

import (
	"net/http"
	"testing"
	"time"
)

func TestExpiresTTL(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		headers map[string]string
		wantTTL time.Duration
		wantOK  bool
	}{
		{
			name:   "no headers",
			wantOK: false,
		},
		{
			name:    "max-age",
			headers: map[string]string{"Cache-Control": "public, max-age=300"},
			wantTTL: 5 * time.Minute,
			wantOK:  true,
		},
		{
			name: "max-age wins over expires",
			headers: map[string]string{
				"Cache-Control": "max-age=60",
				"Expires":       now.Add(time.Hour).Format(http.TimeFormat),
			},
			wantTTL: time.Minute,
			wantOK:  true,
		},
		{
			name:    "no-store",
			headers: map[string]string{"Cache-Control": "no-store"},
			wantTTL: 0,
			wantOK:  true,
		},
		{
			name:    "expires in the future",
			headers: map[string]string{"Expires": now.Add(90 * time.Second).Format(http.TimeFormat)},
			wantTTL: 90 * time.Second,
			wantOK:  true,
		},
		{
			name:    "expires in the past",
			headers: map[string]string{"Expires": now.Add(-time.Minute).Format(http.TimeFormat)},
			wantTTL: 0,
			wantOK:  true,
		},
		{
			name:    "invalid expires",
			headers: map[string]string{"Expires": "tomorrow"},
			wantOK:  false,
		},
		{
			name:    "invalid max-age falls back to expires",
			headers: map[string]string{"Cache-Control": "max-age=soon", "Expires": now.Add(time.Minute).Format(http.TimeFormat)},
			wantTTL: time.Minute,
			wantOK:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}

			ttl, ok := ExpiresTTL(h, now)
			if ok != tt.wantOK {
				t.Fatalf("ExpiresTTL() ok = %v, want %v", ok, tt.wantOK)
			}
			if ttl != tt.wantTTL {
				t.Errorf("ExpiresTTL() ttl = %v, want %v", ttl, tt.wantTTL)
			}
		})
	}
}
