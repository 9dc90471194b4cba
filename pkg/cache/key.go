package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// SentinelKey is the reserved key holding the entire fetched-and-normalized
// collection. Query keys never collide with it because they always carry a
// "lookup:" or "search:" prefix.
const SentinelKey = "collection:*"

// LookupKey returns the cache key for an exact-key lookup.
func LookupKey(key string) string {
	return "lookup:" + key
}

// SearchKey returns the cache key for a free-text search.
// Queries differing only in case share one entry.
func SearchKey(query string) string {
	return "search:" + strings.ToLower(query)
}

// Key identifies a value in the Redis snapshot store.
type Key struct {
	// Endpoint is the upstream path the value was fetched from (e.g. "/v1/clusters")
	Endpoint string

	// Params are optional query parameters that select a variant of the endpoint
	Params url.Values
}

// String generates a deterministic key string.
// Format: xref:endpoint:param1=val1:param2=val2
//
// Example:
//
//	xref:v1/clusters:lang=en
func (k Key) String() string {
	parts := []string{"xref"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Params.Get(name)))
		}
	}

	return strings.Join(parts, ":")
}
