package reference

// Organism is a canonical entry in the embedded reference set.
type Organism struct {
	ID             string   `json:"id"`
	ScientificName string   `json:"scientificName"`
	CommonName     string   `json:"commonName"`
	Category       string   `json:"category"`
	Description    string   `json:"description"`
	Transmission   string   `json:"transmission"`
	Symptoms       []string `json:"symptoms"`
	Treatment      string   `json:"treatment"`
	Urgency        string   `json:"urgency"`
	InfoURL        string   `json:"infoUrl,omitempty"`
}
