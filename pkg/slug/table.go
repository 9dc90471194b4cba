// Package slug resolves human-readable surah slugs and composite verse
// identifiers ("al-baqarah:255") to canonical surah ids and verse keys.
//
// The table is built once at package initialization and never mutated, so it
// is safe for concurrent use without synchronization.
package slug

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SurahCount is the number of surahs in the table.
const SurahCount = len(surahSlugs)

var (
	// compositePattern matches <slug><sep><number> with sep one of : / - _
	compositePattern = regexp.MustCompile(`^([A-Za-z][A-Za-z'_ -]*)[:/_-](\d+)$`)

	canonicalPattern = regexp.MustCompile(`^(\d+):(\d+)$`)

	slugReplacer = strings.NewReplacer("-", "", "_", "", "'", "", "’", "", " ", "")
)

// Reference is a resolved surah and verse.
type Reference struct {
	Surah int
	Verse int
}

// Key returns the canonical "surah:verse" key.
func (r Reference) Key() string {
	return fmt.Sprintf("%d:%d", r.Surah, r.Verse)
}

// Table is an immutable bidirectional slug ↔ id mapping.
type Table struct {
	bySlug map[string]int
	byID   []string
}

var defaultTable = newTable(surahSlugs[:])

// Default returns the shared surah table.
func Default() *Table {
	return defaultTable
}

func newTable(slugs []string) *Table {
	t := &Table{
		bySlug: make(map[string]int, len(slugs)),
		byID:   make([]string, len(slugs)),
	}
	for i, s := range slugs {
		n := Normalize(s)
		if _, dup := t.bySlug[n]; dup {
			panic(fmt.Sprintf("slug: duplicate slug %q", n))
		}
		t.bySlug[n] = i + 1
		t.byID[i] = n
	}
	return t
}

// Normalize lowercases s and strips hyphens, underscores, apostrophes and spaces.
func Normalize(s string) string {
	return slugReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.byID)
}

// SlugToID returns the id for slug after normalization.
func (t *Table) SlugToID(slug string) (int, bool) {
	id, ok := t.bySlug[Normalize(slug)]
	return id, ok
}

// IDToSlug returns the normalized slug for id in [1, Len()].
func (t *Table) IDToSlug(id int) (string, bool) {
	if id < 1 || id > len(t.byID) {
		return "", false
	}
	return t.byID[id-1], true
}

// CompositeIDToReference parses "<slug><sep><verse>". Resolution is
// all-or-nothing: an unknown slug or a verse below 1 yields false.
func (t *Table) CompositeIDToReference(id string) (Reference, bool) {
	m := compositePattern.FindStringSubmatch(strings.TrimSpace(id))
	if m == nil {
		return Reference{}, false
	}

	surah, ok := t.SlugToID(m[1])
	if !ok {
		return Reference{}, false
	}

	verse, err := strconv.Atoi(m[2])
	if err != nil || verse < 1 {
		return Reference{}, false
	}

	return Reference{Surah: surah, Verse: verse}, true
}

// ParseCanonicalKey parses "surah:verse" with the surah in range and verse >= 1.
func (t *Table) ParseCanonicalKey(key string) (Reference, bool) {
	m := canonicalPattern.FindStringSubmatch(strings.TrimSpace(key))
	if m == nil {
		return Reference{}, false
	}

	surah, err := strconv.Atoi(m[1])
	if err != nil || surah < 1 || surah > len(t.byID) {
		return Reference{}, false
	}
	verse, err := strconv.Atoi(m[2])
	if err != nil || verse < 1 {
		return Reference{}, false
	}

	return Reference{Surah: surah, Verse: verse}, true
}

// Resolve accepts either a canonical key or a composite identifier.
func (t *Table) Resolve(id string) (Reference, bool) {
	if ref, ok := t.ParseCanonicalKey(id); ok {
		return ref, true
	}
	return t.CompositeIDToReference(id)
}

// SlugToID resolves slug against the default table.
func SlugToID(slug string) (int, bool) { return defaultTable.SlugToID(slug) }

// IDToSlug resolves id against the default table.
func IDToSlug(id int) (string, bool) { return defaultTable.IDToSlug(id) }

// CompositeIDToReference parses id against the default table.
func CompositeIDToReference(id string) (Reference, bool) {
	return defaultTable.CompositeIDToReference(id)
}

// ParseCanonicalKey parses key against the default table.
func ParseCanonicalKey(key string) (Reference, bool) { return defaultTable.ParseCanonicalKey(key) }

// Resolve resolves id against the default table.
func Resolve(id string) (Reference, bool) { return defaultTable.Resolve(id) }

// Len returns the size of the default table.
func Len() int { return defaultTable.Len() }
