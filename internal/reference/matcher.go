package reference

import "strings"

// Match resolves a detection to a reference entry. Lookup order: exact
// ID, case-insensitive substring on scientific name, then on common
// name. Returns nil when nothing matches; an unmatched detection is not
// an error.
func Match(id, scientificName, commonName string) *Organism {
	if id != "" {
		for i := range catalog {
			if catalog[i].ID == id {
				cp := catalog[i]
				return &cp
			}
		}
	}

	if sci := strings.ToLower(strings.TrimSpace(scientificName)); sci != "" {
		for i := range catalog {
			if strings.Contains(strings.ToLower(catalog[i].ScientificName), sci) ||
				strings.Contains(sci, strings.ToLower(catalog[i].ScientificName)) {
				cp := catalog[i]
				return &cp
			}
		}
	}

	if common := strings.ToLower(strings.TrimSpace(commonName)); common != "" {
		for i := range catalog {
			if strings.Contains(strings.ToLower(catalog[i].CommonName), common) ||
				strings.Contains(common, strings.ToLower(catalog[i].CommonName)) {
				cp := catalog[i]
				return &cp
			}
		}
	}

	return nil
}
