package reference

// catalog is the embedded canonical organism set. Entries are ordered;
// lookup scans in order and the first match wins.
var catalog = []Organism{
	{
		ID:             "ascaris-lumbricoides",
		ScientificName: "Ascaris lumbricoides",
		CommonName:     "Giant roundworm",
		Category:       "nematode",
		Description:    "Large intestinal roundworm; fertilized eggs are oval with a thick mammillated shell.",
		Transmission:   "Ingestion of embryonated eggs from contaminated soil, food, or water.",
		Symptoms:       []string{"abdominal pain", "malnutrition", "intestinal obstruction", "cough during larval migration"},
		Treatment:      "Albendazole or mebendazole.",
		Urgency:        "moderate",
		InfoURL:        "https://www.cdc.gov/dpdx/ascariasis/index.html",
	},
	{
		ID:             "giardia-lamblia",
		ScientificName: "Giardia lamblia",
		CommonName:     "Giardia",
		Category:       "protozoan",
		Description:    "Flagellated protozoan; cysts are oval with four nuclei, trophozoites pear-shaped.",
		Transmission:   "Fecal-oral route, commonly via contaminated water.",
		Symptoms:       []string{"diarrhea", "bloating", "greasy stools", "weight loss"},
		Treatment:      "Metronidazole or tinidazole.",
		Urgency:        "moderate",
		InfoURL:        "https://www.cdc.gov/dpdx/giardiasis/index.html",
	},
	{
		ID:             "taenia-solium",
		ScientificName: "Taenia solium",
		CommonName:     "Pork tapeworm",
		Category:       "cestode",
		Description:    "Tapeworm whose eggs are radially striated; gravid proglottids have fewer than 13 uterine branches.",
		Transmission:   "Ingestion of undercooked pork containing cysticerci, or eggs via fecal-oral route.",
		Symptoms:       []string{"abdominal discomfort", "passage of proglottids", "risk of neurocysticercosis"},
		Treatment:      "Praziquantel; neurocysticercosis requires specialist care.",
		Urgency:        "high",
		InfoURL:        "https://www.cdc.gov/dpdx/taeniasis/index.html",
	},
	{
		ID:             "taenia-saginata",
		ScientificName: "Taenia saginata",
		CommonName:     "Beef tapeworm",
		Category:       "cestode",
		Description:    "Tapeworm morphologically close to T. solium; gravid proglottids have more than 13 uterine branches.",
		Transmission:   "Ingestion of undercooked beef containing cysticerci.",
		Symptoms:       []string{"abdominal discomfort", "passage of proglottids", "nausea"},
		Treatment:      "Praziquantel.",
		Urgency:        "moderate",
		InfoURL:        "https://www.cdc.gov/dpdx/taeniasis/index.html",
	},
	{
		ID:             "ancylostoma-duodenale",
		ScientificName: "Ancylostoma duodenale",
		CommonName:     "Hookworm",
		Category:       "nematode",
		Description:    "Hookworm whose thin-shelled oval eggs contain a 4-8 cell embryo when passed.",
		Transmission:   "Larval skin penetration from contaminated soil.",
		Symptoms:       []string{"iron-deficiency anemia", "abdominal pain", "ground itch"},
		Treatment:      "Albendazole or mebendazole plus iron supplementation.",
		Urgency:        "moderate",
		InfoURL:        "https://www.cdc.gov/dpdx/hookworm/index.html",
	},
	{
		ID:             "enterobius-vermicularis",
		ScientificName: "Enterobius vermicularis",
		CommonName:     "Pinworm",
		Category:       "nematode",
		Description:    "Small nematode; eggs are asymmetrically flattened on one side.",
		Transmission:   "Fecal-oral route, frequently self-reinfection in children.",
		Symptoms:       []string{"perianal itching", "sleep disturbance"},
		Treatment:      "Albendazole, mebendazole, or pyrantel pamoate; treat household contacts.",
		Urgency:        "low",
		InfoURL:        "https://www.cdc.gov/dpdx/enterobiasis/index.html",
	},
	{
		ID:             "trichuris-trichiura",
		ScientificName: "Trichuris trichiura",
		CommonName:     "Whipworm",
		Category:       "nematode",
		Description:    "Whipworm with distinctive barrel-shaped eggs bearing polar plugs at both ends.",
		Transmission:   "Ingestion of embryonated eggs from contaminated soil.",
		Symptoms:       []string{"diarrhea", "rectal prolapse in heavy infection", "growth retardation"},
		Treatment:      "Albendazole or mebendazole.",
		Urgency:        "moderate",
		InfoURL:        "https://www.cdc.gov/dpdx/trichuriasis/index.html",
	},
	{
		ID:             "entamoeba-histolytica",
		ScientificName: "Entamoeba histolytica",
		CommonName:     "Amoeba",
		Category:       "protozoan",
		Description:    "Invasive amoeba; cysts have up to four nuclei, trophozoites may contain ingested red cells.",
		Transmission:   "Fecal-oral route via contaminated food or water.",
		Symptoms:       []string{"dysentery", "abdominal pain", "liver abscess"},
		Treatment:      "Metronidazole followed by a luminal agent.",
		Urgency:        "high",
		InfoURL:        "https://www.cdc.gov/dpdx/amebiasis/index.html",
	},
	{
		ID:             "schistosoma-mansoni",
		ScientificName: "Schistosoma mansoni",
		CommonName:     "Blood fluke",
		Category:       "trematode",
		Description:    "Blood fluke; eggs are large with a prominent lateral spine.",
		Transmission:   "Skin penetration by cercariae in contaminated fresh water.",
		Symptoms:       []string{"bloody stools", "hepatosplenomegaly", "portal hypertension in chronic disease"},
		Treatment:      "Praziquantel.",
		Urgency:        "high",
		InfoURL:        "https://www.cdc.gov/dpdx/schistosomiasis/index.html",
	},
	{
		ID:             "strongyloides-stercoralis",
		ScientificName: "Strongyloides stercoralis",
		CommonName:     "Threadworm",
		Category:       "nematode",
		Description:    "Nematode usually seen as rhabditiform larvae in stool rather than eggs.",
		Transmission:   "Larval skin penetration; capable of autoinfection.",
		Symptoms:       []string{"abdominal pain", "larva currens rash", "hyperinfection in immunosuppressed"},
		Treatment:      "Ivermectin.",
		Urgency:        "high",
		InfoURL:        "https://www.cdc.gov/dpdx/strongyloidiasis/index.html",
	},
}

// All returns the full reference set.
func All() []Organism {
	out := make([]Organism, len(catalog))
	copy(out, catalog)
	return out
}
