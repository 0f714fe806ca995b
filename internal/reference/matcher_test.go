package reference

import "testing"

func TestMatchByID(t *testing.T) {
	got := Match("giardia-lamblia", "", "")
	if got == nil || got.ScientificName != "Giardia lamblia" {
		t.Fatalf("Match by id = %+v, want Giardia lamblia", got)
	}
}

func TestMatchByScientificName(t *testing.T) {
	cases := []struct {
		query string
		want  string
	}{
		{"Ascaris lumbricoides", "ascaris-lumbricoides"},
		{"ascaris", "ascaris-lumbricoides"},
		{"  Trichuris trichiura  ", "trichuris-trichiura"},
		{"Schistosoma mansoni egg with lateral spine", "schistosoma-mansoni"},
	}
	for _, tc := range cases {
		got := Match("", tc.query, "")
		if got == nil || got.ID != tc.want {
			t.Fatalf("Match(%q) = %+v, want id %q", tc.query, got, tc.want)
		}
	}
}

func TestMatchByCommonName(t *testing.T) {
	got := Match("", "", "pinworm")
	if got == nil || got.ID != "enterobius-vermicularis" {
		t.Fatalf("Match by common name = %+v, want pinworm entry", got)
	}
}

func TestMatchScientificBeatsCommon(t *testing.T) {
	// Scientific name resolves first even when the common name would
	// match a different entry.
	got := Match("", "Giardia lamblia", "Amoeba")
	if got == nil || got.ID != "giardia-lamblia" {
		t.Fatalf("Match = %+v, want giardia entry", got)
	}
}

func TestMatchTaeniaOverlapFirstWins(t *testing.T) {
	// "Taenia" alone is ambiguous between solium and saginata; catalog
	// order decides, with solium listed first.
	got := Match("", "Taenia", "")
	if got == nil || got.ID != "taenia-solium" {
		t.Fatalf("Match(Taenia) = %+v, want taenia-solium (first match)", got)
	}
}

func TestMatchNone(t *testing.T) {
	if got := Match("", "Canis familiaris", "dog"); got != nil {
		t.Fatalf("expected no match, got %+v", got)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	all := All()
	if len(all) != len(catalog) {
		t.Fatalf("All() len = %d, want %d", len(all), len(catalog))
	}
	all[0].ID = "mutated"
	if catalog[0].ID == "mutated" {
		t.Fatalf("All() exposed internal catalog")
	}
}
