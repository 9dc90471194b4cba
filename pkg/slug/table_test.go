package slug

import "testing"

func TestLen(t *testing.T) {
	if got := Len(); got != 114 {
		t.Errorf("Len() = %d, want 114", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Al-Baqarah", "albaqarah"},
		{"al_baqarah", "albaqarah"},
		{"Ali 'Imran", "aliimran"},
		{"  YA-SIN ", "yasin"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugToID(t *testing.T) {
	tests := []struct {
		slug   string
		wantID int
		wantOK bool
	}{
		{"Al-Baqarah", 2, true},
		{"al-fatihah", 1, true},
		{"an-nas", 114, true},
		{"an-nasr", 110, true},
		{"ash-shura", 42, true},
		{"ash-shuara", 26, true},
		{"YUSUF", 12, true},
		{"unknown", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			id, ok := SlugToID(tt.slug)
			if ok != tt.wantOK || id != tt.wantID {
				t.Errorf("SlugToID(%q) = (%d, %v), want (%d, %v)", tt.slug, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestIDToSlug(t *testing.T) {
	tests := []struct {
		id     int
		want   string
		wantOK bool
	}{
		{1, "alfatihah", true},
		{2, "albaqarah", true},
		{114, "annas", true},
		{0, "", false},
		{115, "", false},
		{-3, "", false},
	}

	for _, tt := range tests {
		got, ok := IDToSlug(tt.id)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("IDToSlug(%d) = (%q, %v), want (%q, %v)", tt.id, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for id := 1; id <= Len(); id++ {
		s, ok := IDToSlug(id)
		if !ok {
			t.Fatalf("IDToSlug(%d) not found", id)
		}
		back, ok := SlugToID(s)
		if !ok || back != id {
			t.Errorf("SlugToID(IDToSlug(%d)) = (%d, %v)", id, back, ok)
		}
	}
}

func TestCompositeIDToReference(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		want   Reference
		wantOK bool
	}{
		{"colon", "albaqarah:247", Reference{2, 247}, true},
		{"hyphenated slug with hyphen separator", "al-baqarah-247", Reference{2, 247}, true},
		{"slash", "Al-Kahf/10", Reference{18, 10}, true},
		{"underscore", "yusuf_4", Reference{12, 4}, true},
		{"apostrophe", "ali'imran:7", Reference{3, 7}, true},
		{"foreign three-part id", "genesis:1:1", Reference{}, false},
		{"unknown slug", "genesis:1", Reference{}, false},
		{"verse zero", "albaqarah:0", Reference{}, false},
		{"missing verse", "albaqarah:", Reference{}, false},
		{"canonical key", "2:247", Reference{}, false},
		{"empty", "", Reference{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CompositeIDToReference(tt.id)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("CompositeIDToReference(%q) = (%+v, %v), want (%+v, %v)", tt.id, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseCanonicalKey(t *testing.T) {
	tests := []struct {
		key    string
		want   Reference
		wantOK bool
	}{
		{"2:247", Reference{2, 247}, true},
		{" 114:6 ", Reference{114, 6}, true},
		{"115:1", Reference{}, false},
		{"0:1", Reference{}, false},
		{"2:0", Reference{}, false},
		{"2", Reference{}, false},
		{"albaqarah:247", Reference{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseCanonicalKey(tt.key)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseCanonicalKey(%q) = (%+v, %v), want (%+v, %v)", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestResolve(t *testing.T) {
	for _, id := range []string{"2:247", "al-baqarah:247"} {
		ref, ok := Resolve(id)
		if !ok || ref.Key() != "2:247" {
			t.Errorf("Resolve(%q) = (%+v, %v), want 2:247", id, ref, ok)
		}
	}
}

func TestNewTable_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("newTable with duplicate slugs should panic")
		}
	}()
	newTable([]string{"al-kahf", "Al_Kahf"})
}
