package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field aliases seen across providers, in priority order.
var (
	chapterFields    = []string{"chapter", "surah", "chapter_number"}
	verseFields      = []string{"verse", "ayah", "verse_number"}
	identifierFields = []string{"id", "ref", "key", "verse_key"}
	sourceFields     = []string{"source", "scripture", "tag"}
	textFields       = []string{"text", "content"}

	clusterIDFields    = []string{"id", "cluster_id"}
	summaryFields      = []string{"summary", "theme", "description"}
	similarityFields   = []string{"similarity", "score"}
	clusterVerseFields = []string{"verses", "references", "ayahs"}
)

// RawVerse is a verse record as delivered by the upstream. Any field may be
// absent. Chapter and Verse are nil unless a numeric value was present.
type RawVerse struct {
	Chapter    *int
	Verse      *int
	Book       string
	Identifier string
	Source     string
	Text       string
}

// UnmarshalJSON accepts every known field alias and numbers encoded as strings.
func (v *RawVerse) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode verse: %w", err)
	}

	*v = RawVerse{
		Chapter:    firstInt(fields, chapterFields),
		Verse:      firstInt(fields, verseFields),
		Book:       firstString(fields, []string{"book"}),
		Identifier: firstString(fields, identifierFields),
		Source:     firstString(fields, sourceFields),
		Text:       firstString(fields, textFields),
	}
	return nil
}

// RawCluster is a cluster record as delivered by the upstream.
type RawCluster struct {
	ID         string
	Summary    string
	Similarity *float64
	Verses     []RawVerse
}

// UnmarshalJSON accepts every known field alias. A verse list of the wrong
// shape is treated as empty.
func (c *RawCluster) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode cluster: %w", err)
	}

	*c = RawCluster{
		ID:         firstString(fields, clusterIDFields),
		Summary:    firstString(fields, summaryFields),
		Similarity: firstFloat(fields, similarityFields),
	}

	for _, name := range clusterVerseFields {
		raw, ok := fields[name]
		if !ok || isNull(raw) {
			continue
		}

		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			break
		}
		for _, item := range items {
			var verse RawVerse
			if err := json.Unmarshal(item, &verse); err != nil {
				continue
			}
			c.Verses = append(c.Verses, verse)
		}
		break
	}
	return nil
}

// DecodePayload decodes an upstream body. It accepts a bare array, an object
// wrapping the array under "clusters" or "data", and null or empty bodies,
// which yield an empty collection. Records that are not objects are skipped.
func DecodePayload(body []byte) ([]RawCluster, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || isNull(body) {
		return nil, nil
	}

	var items []json.RawMessage
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		for _, name := range []string{"clusters", "data"} {
			raw, ok := wrapper[name]
			if !ok || isNull(raw) {
				continue
			}
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, fmt.Errorf("decode payload %q: %w", name, err)
			}
			break
		}
	default:
		return nil, fmt.Errorf("decode payload: unexpected %q", body[0])
	}

	clusters := make([]RawCluster, 0, len(items))
	for _, item := range items {
		var c RawCluster
		if err := json.Unmarshal(item, &c); err != nil {
			continue
		}
		clusters = append(clusters, c)
	}
	return clusters, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// firstString returns the first alias holding a string or number.
func firstString(fields map[string]json.RawMessage, names []string) string {
	for _, name := range names {
		raw, ok := fields[name]
		if !ok {
			continue
		}

		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

// firstInt returns the first alias holding an integral number or numeric string.
func firstInt(fields map[string]json.RawMessage, names []string) *int {
	f := firstFloat(fields, names)
	if f == nil || *f != math.Trunc(*f) || math.Abs(*f) > math.MaxInt32 {
		return nil
	}
	n := int(*f)
	return &n
}

// firstFloat returns the first alias holding a number or numeric string.
func firstFloat(fields map[string]json.RawMessage, names []string) *float64 {
	for _, name := range names {
		raw, ok := fields[name]
		if !ok || isNull(raw) {
			continue
		}

		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return &f
		}

		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return &f
			}
		}
	}
	return nil
}
