package specialty

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/dispatch-core/pkg/logger"
)

// GeneralPhysician is the fallback specialty when classification fails.
const GeneralPhysician = "General Physician"

// DefaultTaxonomy is the closed set of specialties the classifier may pick.
var DefaultTaxonomy = []string{
	GeneralPhysician, "Neurologist", "Cardiologist", "Orthopedic Surgeon", "Pediatrician",
	"Gynecologist", "Pathologist", "Oncologist", "ENT Surgeon", "Gastroenterologist",
	"Neuro Physician", "General Surgeon", "Urologist", "Nephrologist", "Dermatologist",
	"Physiotherapist", "RMO", "Psychologist", "Anesthesiologist", "Allergist/Immunologist",
	"Endocrinologist", "Hematologist", "Infectious Disease Specialist", "Pulmonologist",
	"Radiologist", "Rheumatologist", "Psychiatrist", "Ophthalmologist", "Plastic Surgeon",
	"Vascular Surgeon", "Neonatologist", "Geriatrician", "Sports Medicine Specialist",
	"Emergency Medicine Physician", "Critical Care Specialist", "Family Medicine Physician",
	"Pain Management Specialist", "Occupational Health Physician", "Cardiothoracic Surgeon",
	"Neurosurgeon", "Hepatologist", "Colorectal Surgeon", "Obstetrician", "Andrologist",
	"Pediatric Surgeon", "Medical Geneticist", "Forensic Pathologist", "Maxillofacial Surgeon",
	"Transplant Surgeon", "Nuclear Medicine Physician", "Interventional Radiologist",
	"Palliative Care Specialist",
}

// Classifier picks one label from taxonomy for text.
type Classifier interface {
	Classify(ctx context.Context, text string, taxonomy []string) (string, error)
}

// Finding is the assessment of one symptom fragment.
type Finding struct {
	Symptom   string      `json:"symptom"`
	Specialty string      `json:"specialty"`
	Matches   []Candidate `json:"matches"`
}

// Assessment is the full triage result.
type Assessment struct {
	Findings []Finding `json:"findings"`
	Text     string    `json:"text"`
}

// Triage maps symptom descriptions to specialties and reference doctors.
type Triage struct {
	classifier Classifier
	candidates []Candidate
	taxonomy   []string
	logger     *logger.Logger
}

// NewTriage creates a Triage. A nil taxonomy uses DefaultTaxonomy.
func NewTriage(classifier Classifier, candidates []Candidate, taxonomy []string, log *logger.Logger) *Triage {
	if taxonomy == nil {
		taxonomy = DefaultTaxonomy
	}
	return &Triage{
		classifier: classifier,
		candidates: candidates,
		taxonomy:   taxonomy,
		logger:     log,
	}
}

var symptomSeparators = regexp.MustCompile(`[.,\n]`)

// SplitSymptoms breaks a description into trimmed fragments longer than two
// characters.
func SplitSymptoms(text string) []string {
	var out []string
	for _, part := range symptomSeparators.Split(text, -1) {
		part = strings.TrimSpace(part)
		if len([]rune(part)) > 2 {
			out = append(out, part)
		}
	}
	return out
}

// Assess classifies every symptom fragment and lists matching candidates.
// Classifier failures degrade to GeneralPhysician and never surface.
func (t *Triage) Assess(ctx context.Context, symptoms string) *Assessment {
	fragments := SplitSymptoms(symptoms)
	findings := make([]Finding, 0, len(fragments))
	paragraphs := make([]string, 0, len(fragments)+1)

	for _, fragment := range fragments {
		spec := t.classify(ctx, fragment)
		matches := Match(spec, t.candidates)
		findings = append(findings, Finding{Symptom: fragment, Specialty: spec, Matches: matches})
		paragraphs = append(paragraphs, describe(fragment, spec, matches))
	}

	if len(paragraphs) == 0 {
		return &Assessment{
			Findings: findings,
			Text:     "Please describe your symptoms in a little more detail so we can guide you.",
		}
	}

	paragraphs = append(paragraphs,
		"Would you like to book an appointment with any of these doctors or ask more questions?\n"+
			"If it feels severe, please see a physician immediately.")

	return &Assessment{Findings: findings, Text: strings.Join(paragraphs, "\n\n")}
}

func (t *Triage) classify(ctx context.Context, fragment string) string {
	if t.classifier == nil {
		return GeneralPhysician
	}
	label, err := t.classifier.Classify(ctx, fragment, t.taxonomy)
	if err != nil {
		t.logger.Warn("symptom classification failed, using general physician",
			zap.String("symptom", fragment),
			zap.Error(err),
		)
		return GeneralPhysician
	}
	for _, s := range t.taxonomy {
		if strings.EqualFold(s, strings.TrimSpace(label)) {
			return s
		}
	}
	return GeneralPhysician
}

func describe(symptom, spec string, matches []Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Symptom*: %q\nLikely specialty: %s.\n", symptom, spec)
	b.WriteString("Disclaimer: This is basic guidance, not a formal diagnosis. Please consult in person for serious concerns.")
	if len(matches) == 0 {
		fmt.Fprintf(&b, "\n[No specific doctor found for specialty %q - kindly see a general physician.]", spec)
		return b.String()
	}
	b.WriteString("\n*Possible doctors* matching that specialty:")
	for _, m := range matches {
		fmt.Fprintf(&b, "\n*%s* (Specialization: %s)", m.Name, strings.Join(m.Aliases, ", "))
	}
	return b.String()
}

// LoadCandidates reads a JSON array of candidates from path.
func LoadCandidates(path string) ([]Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read specialties: %w", err)
	}
	var candidates []Candidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, fmt.Errorf("failed to parse specialties: %w", err)
	}
	return candidates, nil
}
