// Package source adapts a heterogeneous third-party cluster dataset into
// normalized cross-scripture clusters.
//
// An Adapter fetches the whole upstream collection at most once per cache
// window, normalizes every record and serves two independently cached query
// shapes on top of it: exact-key lookup (GetByKey) and free-text search
// (Search). Neither query returns an error; upstream failures degrade to an
// empty result which is not cached.
package source

// Kind classifies a verse reference relative to the scripture under study.
type Kind string

const (
	// KindAnchor marks a Quran verse.
	KindAnchor Kind = "anchor"

	// KindRelated marks a verse from another recognized scripture.
	KindRelated Kind = "related"
)

// VerseReference is a normalized verse.
//
// CanonicalKey ("surah:verse") is set on anchor references only when
// resolution succeeded. Callers must not derive identity from Chapter and
// Verse when it is empty.
type VerseReference struct {
	Kind         Kind   `json:"kind"`
	Book         string `json:"book"`
	Chapter      int    `json:"chapter"`
	Verse        int    `json:"verse"`
	Text         string `json:"text"`
	CanonicalKey string `json:"canonical_key,omitempty"`
}

// Cluster is a group of semantically related verses.
type Cluster struct {
	ID         string           `json:"id"`
	Summary    string           `json:"summary"`
	Similarity float64          `json:"similarity"`
	References []VerseReference `json:"references"`
}

// HasAnchorKey reports whether the cluster contains an anchor reference
// resolved to key.
func (c Cluster) HasAnchorKey(key string) bool {
	for _, ref := range c.References {
		if ref.Kind == KindAnchor && ref.CanonicalKey != "" && ref.CanonicalKey == key {
			return true
		}
	}
	return false
}

// clone returns a copy of c that shares no memory with it.
func (c Cluster) clone() Cluster {
	if c.References != nil {
		c.References = append([]VerseReference(nil), c.References...)
	}
	return c
}

// cloneClusters deep-copies clusters. Cached collections are shared by every
// query, so callers only ever see copies.
func cloneClusters(clusters []Cluster) []Cluster {
	out := make([]Cluster, len(clusters))
	for i, c := range clusters {
		out[i] = c.clone()
	}
	return out
}
