package funnel

// Dimension is one of the four DISC behavioral axes.
type Dimension string

const (
	DimDominance  Dimension = "D"
	DimInfluence  Dimension = "I"
	DimSteadiness Dimension = "S"
	DimCompliance Dimension = "C"
)

// dimensionPrecedence breaks score ties deterministically: D > I > S > C.
var dimensionPrecedence = []Dimension{DimDominance, DimInfluence, DimSteadiness, DimCompliance}

// ValidDimension reports whether d is one of the four DISC axes.
func ValidDimension(d Dimension) bool {
	for _, p := range dimensionPrecedence {
		if p == d {
			return true
		}
	}
	return false
}

// DiscOption is one forced-choice answer, pre-mapped to exactly one dimension.
type DiscOption struct {
	ID        string
	Label     string
	Dimension Dimension
}

// DiscQuestion is one questionnaire step. The question table is read-only
// configuration supplied by the content provider.
type DiscQuestion struct {
	Prompt  string
	Options []DiscOption
}

// DiscResult is the finalized profile, computed once on questionnaire
// completion and never recomputed afterward.
type DiscResult struct {
	Dominant Dimension         `json:"dominant"`
	Scores   map[Dimension]int `json:"scores"`
}

// NextDiscQuestion returns the index of the first unanswered question, or
// false when the questionnaire is complete.
func NextDiscQuestion(questions []DiscQuestion, answers []DiscAnswer) (int, bool) {
	if len(answers) >= len(questions) {
		return 0, false
	}
	return len(answers), true
}

// ScoreDisc tallies one point per answer into the option's dimension and
// resolves the dominant axis. Ties fall to the earlier dimension in the
// D > I > S > C precedence order, so the result is fully deterministic.
func ScoreDisc(questions []DiscQuestion, answers []DiscAnswer) DiscResult {
	scores := map[Dimension]int{
		DimDominance:  0,
		DimInfluence:  0,
		DimSteadiness: 0,
		DimCompliance: 0,
	}
	for _, a := range answers {
		if a.Question < 0 || a.Question >= len(questions) {
			continue
		}
		for _, opt := range questions[a.Question].Options {
			if opt.ID == a.Option {
				scores[opt.Dimension]++
				break
			}
		}
	}

	dominant := dimensionPrecedence[0]
	best := scores[dominant]
	for _, d := range dimensionPrecedence[1:] {
		if scores[d] > best {
			dominant = d
			best = scores[d]
		}
	}
	return DiscResult{Dominant: dominant, Scores: scores}
}
