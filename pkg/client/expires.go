package client

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ExpiresTTL derives a cache lifetime from response headers.
// Cache-Control max-age takes precedence over Expires. no-store and no-cache
// yield a zero TTL. ok is false when neither header carries a usable value.
func ExpiresTTL(headers http.Header, now time.Time) (time.Duration, bool) {
	if cc := headers.Get("Cache-Control"); cc != "" {
		for _, directive := range strings.Split(cc, ",") {
			directive = strings.ToLower(strings.TrimSpace(directive))

			switch {
			case directive == "no-store", directive == "no-cache":
				return 0, true
			case strings.HasPrefix(directive, "max-age="):
				seconds, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age="))
				if err != nil || seconds < 0 {
					continue
				}
				return time.Duration(seconds) * time.Second, true
			}
		}
	}

	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return 0, false
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return 0, false
	}

	// Already expired
	if !expires.After(now) {
		return 0, true
	}

	return expires.Sub(now), true
}
