package funnel_test

import (
	"testing"

	"github.com/robertmcarvalho/rh-kelly-agent/internal/funnel"
)

var allStages = []funnel.Stage{
	funnel.StageIntro,
	funnel.StageCitySelection,
	funnel.StageRequirementsCheck,
	funnel.StageRequirementsFailed,
	funnel.StageDiscQuestionnaire,
	funnel.StageVacancyOffer,
	funnel.StageFormHandoff,
	funnel.StageNoVacancy,
	funnel.StageHumanHandoff,
}

// ── ParseStage ─────────────────────────────────────────────────────────────

func TestParseStage_ValidValues(t *testing.T) {
	for _, s := range allStages {
		got, err := funnel.ParseStage(string(s))
		if err != nil {
			t.Errorf("ParseStage(%q) returned unexpected error: %v", s, err)
		}
		if got != s {
			t.Errorf("ParseStage(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseStage_InvalidValue(t *testing.T) {
	for _, s := range []string{"UNKNOWN", "", "intro", " INTRO"} {
		if _, err := funnel.ParseStage(s); err == nil {
			t.Errorf("ParseStage(%q) expected error, got nil", s)
		}
	}
}

// ── IsTransitionAllowed — valid (forward) transitions ─────────────────────

func TestIsTransitionAllowed_ValidForward(t *testing.T) {
	cases := []struct {
		from funnel.Stage
		to   funnel.Stage
	}{
		{funnel.StageIntro, funnel.StageCitySelection},
		{funnel.StageCitySelection, funnel.StageRequirementsCheck},
		{funnel.StageRequirementsCheck, funnel.StageDiscQuestionnaire},
		{funnel.StageRequirementsCheck, funnel.StageRequirementsFailed},
		{funnel.StageDiscQuestionnaire, funnel.StageVacancyOffer},
		{funnel.StageVacancyOffer, funnel.StageFormHandoff},
		{funnel.StageVacancyOffer, funnel.StageNoVacancy},
	}
	for _, c := range cases {
		if !funnel.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be true", c.from, c.to)
		}
	}
}

// ── IsTransitionAllowed — escalation is allowed from every non-terminal ────

func TestIsTransitionAllowed_ToHumanHandoff(t *testing.T) {
	nonTerminals := []funnel.Stage{
		funnel.StageIntro,
		funnel.StageCitySelection,
		funnel.StageRequirementsCheck,
		funnel.StageDiscQuestionnaire,
		funnel.StageVacancyOffer,
	}
	for _, from := range nonTerminals {
		if !funnel.IsTransitionAllowed(from, funnel.StageHumanHandoff) {
			t.Errorf("IsTransitionAllowed(%s → HUMAN_HANDOFF) should be true", from)
		}
	}
}

// ── IsTransitionAllowed — terminal stages have no outgoing transitions ─────

func TestIsTransitionAllowed_FromTerminal(t *testing.T) {
	terminals := []funnel.Stage{
		funnel.StageRequirementsFailed,
		funnel.StageFormHandoff,
		funnel.StageNoVacancy,
		funnel.StageHumanHandoff,
	}
	for _, from := range terminals {
		for _, to := range allStages {
			if funnel.IsTransitionAllowed(from, to) {
				t.Errorf("IsTransitionAllowed(%s → %s) should be false (terminal stage)", from, to)
			}
		}
	}
}

// ── IsTransitionAllowed — skip-level transitions are forbidden ─────────────

func TestIsTransitionAllowed_SkipLevel(t *testing.T) {
	cases := []struct {
		from funnel.Stage
		to   funnel.Stage
	}{
		{funnel.StageIntro, funnel.StageRequirementsCheck},   // skip CITY_SELECTION
		{funnel.StageIntro, funnel.StageVacancyOffer},        // skip three
		{funnel.StageCitySelection, funnel.StageDiscQuestionnaire},
		{funnel.StageCitySelection, funnel.StageVacancyOffer},
		{funnel.StageRequirementsCheck, funnel.StageVacancyOffer}, // skip DISC
		{funnel.StageRequirementsCheck, funnel.StageFormHandoff},
		{funnel.StageDiscQuestionnaire, funnel.StageFormHandoff}, // skip VACANCY_OFFER
	}
	for _, c := range cases {
		if funnel.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be false (skip-level)", c.from, c.to)
		}
	}
}

// ── IsTransitionAllowed — backwards movements are forbidden ────────────────

func TestIsTransitionAllowed_Backwards(t *testing.T) {
	cases := []struct {
		from funnel.Stage
		to   funnel.Stage
	}{
		{funnel.StageCitySelection, funnel.StageIntro},
		{funnel.StageRequirementsCheck, funnel.StageCitySelection},
		{funnel.StageDiscQuestionnaire, funnel.StageRequirementsCheck},
		{funnel.StageVacancyOffer, funnel.StageDiscQuestionnaire},
	}
	for _, c := range cases {
		if funnel.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be false (backwards)", c.from, c.to)
		}
	}
}

// ── IsTransitionAllowed — self-transitions are forbidden ───────────────────

func TestIsTransitionAllowed_Self(t *testing.T) {
	for _, s := range allStages {
		if funnel.IsTransitionAllowed(s, s) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be false (self)", s, s)
		}
	}
}

// ── IsTerminal ─────────────────────────────────────────────────────────────

func TestIsTerminal(t *testing.T) {
	terminal := map[funnel.Stage]bool{
		funnel.StageRequirementsFailed: true,
		funnel.StageFormHandoff:        true,
		funnel.StageNoVacancy:          true,
		funnel.StageHumanHandoff:       true,
	}
	for _, s := range allStages {
		if got := funnel.IsTerminal(s); got != terminal[s] {
			t.Errorf("IsTerminal(%s) = %v, want %v", s, got, terminal[s])
		}
	}
}
