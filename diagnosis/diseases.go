package diagnosis

// Disease describes one classifier label.
type Disease struct {
	Class    string `json:"-"`
	Name     string `json:"name"`
	Cause    string `json:"cause"`
	Solution string `json:"sol"`
	Link     string `json:"link"`
}

// HealthyLabel is the label of a plant with no disease.
const HealthyLabel = 9

var diseases = []Disease{
	{"Tomato___Bacterial_spot", "Bacterial Spot", "Bacteria spread by rain and tools.", "Spray copper oxychloride.", "bacterial_spot"},
	{"Tomato___Early_blight", "Early Blight", "Fungal infection.", "Spray mancozeb.", "early_blight"},
	{"Tomato___Late_blight", "Late Blight", "Fungal infection.", "Spray a cymoxanil/mancozeb mix.", "late_blight"},
	{"Tomato___Leaf_Mold", "Leaf Mold", "Fungal infection.", "Spray carbendazim.", "leaf_mold"},
	{"Tomato___Septoria_leaf_spot", "Septoria Leaf Spot", "Fungal infection.", "Spray fenitrothion.", "septoria"},
	{"Tomato___Spider_mites Two-spotted_spider_mite", "Spider Mites", "Red spider mites.", "Spray abamectin.", "spider_mites"},
	{"Tomato___Target_Spot", "Target Spot", "Fungal infection.", "Use azoxystrobin/difenoconazole.", "target_spot"},
	{"Tomato___Tomato_Yellow_Leaf_Curl_Virus", "Yellow Leaf Curl Virus", "Spread by whiteflies.", "Spray imidacloprid.", "yellow_curl"},
	{"Tomato___Tomato_mosaic_virus", "Mosaic Virus", "Viral infection.", "Remove infected plants.", "mosaic_virus"},
	{"Tomato___healthy", "Healthy", "The plant is healthy.", "Water regularly.", "healthy"},
}

var unknownDisease = Disease{Name: "Unknown Disease", Cause: "Could not be identified", Solution: "Seek advice", Link: "#"}

// Lookup returns the table entry for label.
func Lookup(label int) (Disease, bool) {
	if label < 0 || label >= len(diseases) {
		return unknownDisease, false
	}
	return diseases[label], true
}

// Pages returns the link slugs of every known disease.
func Pages() []string {
	res := make([]string, len(diseases))
	for i, d := range diseases {
		res[i] = d.Link
	}
	return res
}
