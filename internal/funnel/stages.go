// Package funnel implements the recruitment conversation state machine.
//
// Valid stage graph:
//
//	INTRO ──► CITY_SELECTION ──► REQUIREMENTS_CHECK ──► DISC_QUESTIONNAIRE ──► VACANCY_OFFER ──► FORM_HANDOFF
//	                                      │                                         │
//	                                      └──► REQUIREMENTS_FAILED                  └──► NO_VACANCY_AVAILABLE
//
// Every non-terminal stage can additionally escape to HUMAN_HANDOFF when the
// candidate exhausts the re-prompt cap. REQUIREMENTS_FAILED,
// NO_VACANCY_AVAILABLE, FORM_HANDOFF and HUMAN_HANDOFF are terminal.
package funnel

import "fmt"

// Stage values are persisted verbatim in the leads record.
type Stage string

const (
	StageIntro              Stage = "INTRO"
	StageCitySelection      Stage = "CITY_SELECTION"
	StageRequirementsCheck  Stage = "REQUIREMENTS_CHECK"
	StageRequirementsFailed Stage = "REQUIREMENTS_FAILED"
	StageDiscQuestionnaire  Stage = "DISC_QUESTIONNAIRE"
	StageVacancyOffer       Stage = "VACANCY_OFFER"
	StageFormHandoff        Stage = "FORM_HANDOFF"
	StageNoVacancy          Stage = "NO_VACANCY_AVAILABLE"
	StageHumanHandoff       Stage = "HUMAN_HANDOFF"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[Stage][]Stage{
	StageIntro:             {StageCitySelection, StageHumanHandoff},
	StageCitySelection:     {StageRequirementsCheck, StageHumanHandoff},
	StageRequirementsCheck: {StageDiscQuestionnaire, StageRequirementsFailed, StageHumanHandoff},
	StageDiscQuestionnaire: {StageVacancyOffer, StageHumanHandoff},
	StageVacancyOffer:      {StageFormHandoff, StageNoVacancy, StageHumanHandoff},
	// terminal stages have no outgoing transitions
}

// ParseStage converts a raw string to a Stage, returning an error for
// unknown values.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	switch st {
	case StageIntro, StageCitySelection, StageRequirementsCheck, StageRequirementsFailed,
		StageDiscQuestionnaire, StageVacancyOffer, StageFormHandoff, StageNoVacancy,
		StageHumanHandoff:
		return st, nil
	}
	return "", fmt.Errorf("unknown funnel stage %q", s)
}

// IsTransitionAllowed returns true when moving from → to is permitted by the
// stage graph.
func IsTransitionAllowed(from, to Stage) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false // terminal stage — no outgoing transitions
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true when the stage accepts no further stage-advancing
// events.
func IsTerminal(s Stage) bool {
	_, ok := validTransitions[s]
	return !ok
}
