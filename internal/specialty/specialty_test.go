package specialty

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/dispatch-core/pkg/logger"
)

func TestDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"cardiologist", "cardiologist", 0},
		{"urologist", "neurologist", 2},
		{"शेत", "शेतकरी", 3},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Distance(tc.a, tc.b), "%q vs %q", tc.a, tc.b)
		require.Equal(t, Distance(tc.a, tc.b), Distance(tc.b, tc.a), "symmetry %q vs %q", tc.a, tc.b)
	}
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "cardiologist", Normalize(`  "Cardiologist" `))
	require.Equal(t, "ent surgeon", Normalize("'ENT Surgeon'"))
	require.Equal(t, "", Normalize(`""`))
}

func TestMatches(t *testing.T) {
	// Substring containment wins even when the edit distance is large.
	require.Greater(t, Distance("cardio", "cardiologist"), MaxDistance)
	require.True(t, Matches("cardio", "cardiologist"))
	require.True(t, Matches("cardiologist", "cardio"))

	require.True(t, Matches("dermatologist", "dermatolgist"))
	require.True(t, Matches("pediatrician", "paediatrician"))
	require.False(t, Matches("oncologist", "dermatologist"))
	require.False(t, Matches("", "cardiologist"))
}

func testCandidates() []Candidate {
	return []Candidate{
		{Name: "Dr. Mehta", Aliases: []string{`"Cardiologist"`, "Heart Specialist"}},
		{Name: "Dr. Rao", Aliases: []string{"Dermatologist"}},
		{Name: "Dr. Iyer", Aliases: []string{"Interventional Cardiology"}},
		{Name: "Dr. Khan", Aliases: []string{"General Physician", "RMO"}},
	}
}

func TestMatch(t *testing.T) {
	got := Match("cardiologist", testCandidates())
	require.Len(t, got, 1)
	require.Equal(t, "Dr. Mehta", got[0].Name)

	got = Match("CARDIO", testCandidates())
	require.Len(t, got, 2)
	require.Equal(t, "Dr. Mehta", got[0].Name)
	require.Equal(t, "Dr. Iyer", got[1].Name)

	got = Match(" 'dermatologst' ", testCandidates())
	require.Len(t, got, 1)
	require.Equal(t, "Dr. Rao", got[0].Name)

	require.Empty(t, Match("Oncologist", testCandidates()))
	require.Empty(t, Match("  ", testCandidates()))
}

func TestSplitSymptoms(t *testing.T) {
	got := SplitSymptoms("chest pain, skin rash.\nok\n  itchy eyes  ")
	require.Equal(t, []string{"chest pain", "skin rash", "itchy eyes"}, got)
	require.Empty(t, SplitSymptoms(" , . "))
}

type fakeClassifier struct {
	labels map[string]string
	err    error
	calls  []string
}

func (f *fakeClassifier) Classify(_ context.Context, text string, taxonomy []string) (string, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return "", f.err
	}
	return f.labels[text], nil
}

func TestTriageAssess(t *testing.T) {
	classifier := &fakeClassifier{labels: map[string]string{
		"chest pain": " cardiologist ",
		"skin rash":  "Astrologer",
	}}
	triage := NewTriage(classifier, testCandidates(), nil, logger.NewNop())

	a := triage.Assess(context.Background(), "chest pain, skin rash")
	require.Len(t, a.Findings, 2)
	require.Equal(t, []string{"chest pain", "skin rash"}, classifier.calls)

	require.Equal(t, "Cardiologist", a.Findings[0].Specialty)
	require.Len(t, a.Findings[0].Matches, 1)
	require.Equal(t, "Dr. Mehta", a.Findings[0].Matches[0].Name)

	// Labels outside the taxonomy fall back to the general physician.
	require.Equal(t, GeneralPhysician, a.Findings[1].Specialty)
	require.Equal(t, "Dr. Khan", a.Findings[1].Matches[0].Name)

	require.Contains(t, a.Text, "Likely specialty: Cardiologist.")
	require.Contains(t, a.Text, "*Dr. Mehta*")
	require.True(t, strings.HasSuffix(a.Text, "please see a physician immediately."))
}

func TestTriageAssess_ClassifierFailureDegrades(t *testing.T) {
	triage := NewTriage(&fakeClassifier{err: errors.New("model down")}, nil, nil, logger.NewNop())

	a := triage.Assess(context.Background(), "headache")
	require.Len(t, a.Findings, 1)
	require.Equal(t, GeneralPhysician, a.Findings[0].Specialty)
	require.Empty(t, a.Findings[0].Matches)
	require.Contains(t, a.Text, "kindly see a general physician")
}

func TestTriageAssess_NothingToAssess(t *testing.T) {
	triage := NewTriage(nil, testCandidates(), nil, logger.NewNop())
	a := triage.Assess(context.Background(), "..")
	require.Empty(t, a.Findings)
	require.Contains(t, a.Text, "describe your symptoms")
}

func TestLoadCandidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doctors.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"Dr. Mehta","aliases":["Cardiologist"]}]`), 0o600))

	got, err := LoadCandidates(path)
	require.NoError(t, err)
	require.Equal(t, []Candidate{{Name: "Dr. Mehta", Aliases: []string{"Cardiologist"}}}, got)

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
	_, err = LoadCandidates(path)
	require.ErrorContains(t, err, "parse")

	_, err = LoadCandidates(filepath.Join(dir, "missing.json"))
	require.ErrorContains(t, err, "read")
}
