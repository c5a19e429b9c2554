// Package quickreply decides whether a reply gets follow-up suggestions and
// builds the suggestion sets.
package quickreply

import (
	"unicode"

	"github.com/capitalize-ai/dispatch-core/internal/category"
)

// Language is a catalog language code.
type Language string

const (
	English Language = "en"
	Marathi Language = "mr"
)

// DetectLanguage returns Marathi when text contains any Devanagari letter.
func DetectLanguage(text string) Language {
	for _, r := range text {
		if unicode.Is(unicode.Devanagari, r) {
			return Marathi
		}
	}
	return English
}

// Topic is a follow-up suggestion family chosen from the bot reply.
type Topic string

const (
	TopicDocuments Topic = "document_required"
	TopicScheme    Topic = "scheme_info"
	TopicContact   Topic = "contact_info"
)

// localized holds one list per language.
type localized map[Language][]string

func (l localized) get(lang Language) []string {
	if v, ok := l[lang]; ok && len(v) > 0 {
		return v
	}
	return l[English]
}

// Catalog holds the labels every strategy draws from.
type Catalog struct {
	questions map[category.Category]localized
	names     map[category.Category]map[Language]string
	followups map[Topic]localized
	general   localized
	welcome   localized
}

// DefaultCatalog returns the built-in English and Marathi catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		questions: map[category.Category]localized{
			category.Education: {
				English: {"How to get school admission?", "School scholarship schemes", "Mid-day meal program info", "Teacher transfer process"},
				Marathi: {"शाळेत प्रवेश कसा घ्यावा?", "शिष्यवृत्ती योजना", "मध्यान्ह भोजन योजना माहिती", "शिक्षक बदली प्रक्रिया"},
			},
			category.Health: {
				English: {"Vaccination schedule", "Primary health centers", "Maternal health services", "Health insurance schemes"},
				Marathi: {"लसीकरण वेळापत्रक", "प्राथमिक आरोग्य केंद्रे", "मातृत्व आरोग्य सेवा", "आरोग्य विमा योजना"},
			},
			category.Housing: {
				English: {"PM Awas Yojana application", "Housing scheme eligibility", "Construction subsidy info", "Housing loan details"},
				Marathi: {"पीएम आवास योजना अर्ज", "गृहनिर्माण योजना पात्रता", "बांधकाम अनुदान माहिती", "घर कर्ज तपशील"},
			},
			category.Employment: {
				English: {"MGNREGA job card", "Skill development programs", "Employment opportunities", "Self-employment schemes"},
				Marathi: {"मनरेगा जॉब कार्ड", "कौशल्य विकास कार्यक्रम", "रोजगार संधी", "स्वयंरोजगार योजना"},
			},
			category.Agriculture: {
				English: {"Crop insurance scheme", "Kisan credit card", "Agricultural subsidies", "Farmer training programs"},
				Marathi: {"पीक विमा योजना", "किसान क्रेडिट कार्ड", "कृषी अनुदान", "शेतकरी प्रशिक्षण कार्यक्रम"},
			},
			category.Welfare: {
				English: {"Pension schemes", "Scholarship programs", "Widow assistance", "Disability benefits"},
				Marathi: {"पेन्शन योजना", "शिष्यवृत्ती कार्यक्रम", "विधवा सहाय्य", "अपंगत्व लाभ"},
			},
			category.Certificates: {
				English: {"Birth certificate", "Death certificate", "Marriage registration", "Caste certificate"},
				Marathi: {"जन्म दाखला", "मृत्यू दाखला", "विवाह नोंदणी", "जात दाखला"},
			},
		},
		names: map[category.Category]map[Language]string{
			category.Education:    {English: "Education", Marathi: "शिक्षण"},
			category.Health:       {English: "Health", Marathi: "आरोग्य"},
			category.Housing:      {English: "Housing", Marathi: "आवास"},
			category.Employment:   {English: "Employment", Marathi: "रोजगार"},
			category.Agriculture:  {English: "Agriculture", Marathi: "कृषी"},
			category.Welfare:      {English: "Welfare", Marathi: "कल्याण"},
			category.Certificates: {English: "Certificates", Marathi: "दाखले"},
		},
		followups: map[Topic]localized{
			TopicDocuments: {
				English: {"Required documents list", "Application process", "Processing time"},
				Marathi: {"आवश्यक कागदपत्रे", "अर्ज प्रक्रिया", "प्रक्रिया वेळ"},
			},
			TopicScheme: {
				English: {"Eligibility criteria", "How to apply", "Benefits details"},
				Marathi: {"पात्रता निकष", "अर्ज कसा करावा", "लाभ तपशील"},
			},
			TopicContact: {
				English: {"Office hours", "Phone numbers", "Online services"},
				Marathi: {"कार्यालयीन वेळा", "फोन नंबर", "ऑनलाइन सेवा"},
			},
		},
		general: localized{
			English: {"🏛️ Gov Schemes", "📋 Certificates", "📞 Contact Info"},
			Marathi: {"🏛️ सरकारी योजना", "📋 दाखले", "📞 संपर्क माहिती"},
		},
		welcome: localized{
			English: {"🏛️ ZP Services Overview", "📋 Apply for Certificate", "💰 Government Schemes"},
			Marathi: {"🏛️ जिप सेवा माहिती", "📋 दाखला मिळवा", "💰 सरकारी योजना"},
		},
	}
}

// Questions returns the category's questions, falling back to English.
func (c *Catalog) Questions(cat category.Category, lang Language) []string {
	return c.questions[cat].get(lang)
}

// CategoryName returns the display name of cat, or cat itself.
func (c *Catalog) CategoryName(cat category.Category, lang Language) string {
	if n, ok := c.names[cat][lang]; ok {
		return n
	}
	if n, ok := c.names[cat][English]; ok {
		return n
	}
	return string(cat)
}

func (c *Catalog) FollowUps(topic Topic, lang Language) []string {
	return c.followups[topic].get(lang)
}

func (c *Catalog) General(lang Language) []string {
	return c.general.get(lang)
}

func (c *Catalog) Welcome(lang Language) []string {
	return c.welcome.get(lang)
}
