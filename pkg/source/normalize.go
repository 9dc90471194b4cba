package source

import (
	"math"
	"strconv"
	"strings"

	"github.com/Sternrassler/quran-xref/pkg/slug"
)

// AnchorBook is the book name of every anchor reference.
const AnchorBook = "Quran"

type scripture struct {
	kind Kind
	book string
}

// scriptures maps normalized source tags to their classification.
var scriptures = map[string]scripture{
	"quran":  {KindAnchor, AnchorBook},
	"qur'an": {KindAnchor, AnchorBook},
	"koran":  {KindAnchor, AnchorBook},

	"bible":         {KindRelated, "Bible"},
	"torah":         {KindRelated, "Torah"},
	"tanakh":        {KindRelated, "Tanakh"},
	"gospel":        {KindRelated, "Gospel"},
	"injil":         {KindRelated, "Injil"},
	"zabur":         {KindRelated, "Zabur"},
	"psalms":        {KindRelated, "Psalms"},
	"new_testament": {KindRelated, "New Testament"},
	"old_testament": {KindRelated, "Old Testament"},
}

var tagReplacer = strings.NewReplacer(" ", "_", "-", "_", "’", "'")

// classify returns the scripture for a source tag, case-insensitively.
func classify(tag string) (scripture, bool) {
	s, ok := scriptures[tagReplacer.Replace(strings.ToLower(strings.TrimSpace(tag)))]
	return s, ok
}

// NormalizeCluster maps a raw record to a Cluster. It reports false when the
// record has no id. Verses with an unrecognized source tag are dropped.
func NormalizeCluster(raw RawCluster, table *slug.Table) (Cluster, bool) {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return Cluster{}, false
	}

	refs := make([]VerseReference, 0, len(raw.Verses))
	for _, v := range raw.Verses {
		ref, ok := NormalizeVerse(v, table)
		if !ok {
			continue
		}
		refs = append(refs, ref)
	}

	similarity := 0.0
	if raw.Similarity != nil {
		similarity = clamp(*raw.Similarity)
	}

	return Cluster{
		ID:         id,
		Summary:    raw.Summary,
		Similarity: similarity,
		References: refs,
	}, true
}

// NormalizeVerse maps a raw verse to a reference. It reports false when the
// source tag is not a recognized scripture.
func NormalizeVerse(v RawVerse, table *slug.Table) (VerseReference, bool) {
	s, ok := classify(v.Source)
	if !ok {
		return VerseReference{}, false
	}

	if s.kind == KindAnchor {
		return normalizeAnchor(v, table), true
	}
	return normalizeRelated(v, s), true
}

// normalizeAnchor resolves the canonical key from explicit chapter and verse
// first, then from the free-form identifier.
func normalizeAnchor(v RawVerse, table *slug.Table) VerseReference {
	ref := VerseReference{
		Kind: KindAnchor,
		Book: AnchorBook,
		Text: v.Text,
	}

	if v.Chapter != nil && v.Verse != nil {
		ref.Chapter = *v.Chapter
		ref.Verse = *v.Verse
		if r, ok := table.ParseCanonicalKey(strconv.Itoa(ref.Chapter) + ":" + strconv.Itoa(ref.Verse)); ok {
			ref.CanonicalKey = r.Key()
		}
		return ref
	}

	if r, ok := table.Resolve(v.Identifier); ok {
		ref.Chapter = r.Surah
		ref.Verse = r.Verse
		ref.CanonicalKey = r.Key()
	}
	return ref
}

// normalizeRelated takes book, chapter and verse from explicit fields, else
// from a "book:chapter:verse" identifier. Unparsable numbers become 0.
func normalizeRelated(v RawVerse, s scripture) VerseReference {
	ref := VerseReference{
		Kind: KindRelated,
		Book: v.Book,
		Text: v.Text,
	}

	var parts []string
	if p := strings.Split(v.Identifier, ":"); len(p) == 3 {
		parts = p
	}

	if ref.Book == "" && parts != nil {
		ref.Book = strings.TrimSpace(parts[0])
	}
	if ref.Book == "" {
		ref.Book = s.book
	}

	switch {
	case v.Chapter != nil:
		ref.Chapter = *v.Chapter
	case parts != nil:
		ref.Chapter = atoiOrZero(parts[1])
	}

	switch {
	case v.Verse != nil:
		ref.Verse = *v.Verse
	case parts != nil:
		ref.Verse = atoiOrZero(parts[2])
	}

	return ref
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func clamp(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
