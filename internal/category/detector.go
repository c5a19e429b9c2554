// Package category scores free text against per-category keyword sets.
package category

import (
	"strings"
)

// Category is a domain category label.
type Category string

// None is returned when no keyword matched.
const None Category = ""

const (
	Education    Category = "education"
	Health       Category = "health"
	Housing      Category = "housing"
	Employment   Category = "employment"
	Agriculture  Category = "agriculture"
	Welfare      Category = "welfare"
	Certificates Category = "certificates"
)

// Keywords is one category's keyword variants, lower-cased, in every
// supported script.
type Keywords struct {
	Category Category
	Terms    []string
}

// DefaultKeywords is the keyword table in declaration order. Ties between
// categories resolve to the one declared first.
var DefaultKeywords = []Keywords{
	{Education, []string{
		"school", "शाळा", "education", "शिक्षण", "admission", "प्रवेश",
		"scholarship", "शिष्यवृत्ती", "teacher", "शिक्षक", "student", "विद्यार्थी",
		"मिड डे मील", "mid day meal", "uniform", "गणवेश",
	}},
	{Health, []string{
		"health", "आरोग्य", "hospital", "रुग्णालय", "doctor", "डॉक्टर",
		"medicine", "औषध", "vaccination", "लसीकरण", "pregnancy", "गर्भावस्था",
		"phc", "प्राथमिक आरोग्य केंद्र",
	}},
	{Housing, []string{
		"house", "घर", "housing", "आवास", "awas", "home", "construction", "बांधकाम",
		"pmay", "प्रधानमंत्री आवास", "toilet", "शौचालय", "subsidy", "अनुदान",
	}},
	{Employment, []string{
		"job", "नोकरी", "employment", "रोजगार", "mgnrega", "मनरेगा", "work", "काम",
		"skill", "कौशल्य", "training", "प्रशिक्षण", "unemployment", "बेरोजगारी",
	}},
	{Agriculture, []string{
		"farm", "शेत", "agriculture", "कृषी", "crop", "पीक", "farmer", "शेतकरी",
		"kisan", "किसान", "fertilizer", "खत", "insurance", "विमा", "subsidy", "अनुदान",
	}},
	{Welfare, []string{
		"pension", "पेन्शन", "welfare", "कल्याण", "widow", "विधवा",
		"disability", "अपंगत्व", "elderly", "वृद्ध", "social", "सामाजिक",
	}},
	{Certificates, []string{
		"certificate", "दाखला", "birth", "जन्म", "death", "मृत्यू",
		"marriage", "विवाह", "caste", "जात", "income", "उत्पन्न", "domicile", "अधिवास",
	}},
}

// Detector resolves text to the category with the most keyword hits. It
// holds no mutable state and is safe for concurrent use.
type Detector struct {
	table []Keywords
}

// NewDetector creates a Detector over table, keeping its order as the
// tie-break priority. A nil table uses DefaultKeywords.
func NewDetector(table []Keywords) *Detector {
	if table == nil {
		table = DefaultKeywords
	}
	normalized := make([]Keywords, len(table))
	for i, k := range table {
		terms := make([]string, 0, len(k.Terms))
		for _, t := range k.Terms {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				terms = append(terms, t)
			}
		}
		normalized[i] = Keywords{Category: k.Category, Terms: terms}
	}
	return &Detector{table: normalized}
}

// Scores counts, per category, how many keyword variants occur in text.
func (d *Detector) Scores(text string) map[Category]int {
	lower := strings.ToLower(text)
	scores := make(map[Category]int, len(d.table))
	for _, k := range d.table {
		scores[k.Category] = countHits(lower, k.Terms)
	}
	return scores
}

// Detect returns the category with the strictly highest score, or None.
func (d *Detector) Detect(text string) Category {
	if strings.TrimSpace(text) == "" {
		return None
	}
	lower := strings.ToLower(text)

	best := None
	bestScore := 0
	for _, k := range d.table {
		if hits := countHits(lower, k.Terms); hits > bestScore {
			best, bestScore = k.Category, hits
		}
	}
	return best
}

// Categories returns the categories in priority order.
func (d *Detector) Categories() []Category {
	out := make([]Category, len(d.table))
	for i, k := range d.table {
		out[i] = k.Category
	}
	return out
}

func countHits(lower string, terms []string) int {
	hits := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			hits++
		}
	}
	return hits
}
