package funnel

import "time"

// RequirementsStatus is the tri-state outcome of the eligibility check.
type RequirementsStatus string

const (
	RequirementsUnknown RequirementsStatus = "UNKNOWN"
	RequirementsPassed  RequirementsStatus = "PASS"
	RequirementsFailed  RequirementsStatus = "FAIL"
)

// DiscAnswer records one answered questionnaire step.
type DiscAnswer struct {
	Question int    `json:"question"`
	Option   string `json:"option"`
}

// LeadContext is the persisted per-candidate funnel state, one per sender.
// It is mutated exclusively by the state machine and written back through the
// context store's compare-and-swap; Version increases on every successful
// write.
type LeadContext struct {
	SenderID           string             `json:"sender_id"`
	Stage              Stage              `json:"stage"`
	City               string             `json:"city,omitempty"`
	RequirementsStatus RequirementsStatus `json:"requirements_passed"`
	ReqAnswers         []bool             `json:"req_answers"`
	DiscAnswers        []DiscAnswer       `json:"disc_answers"`
	DiscResult         *DiscResult        `json:"disc_result,omitempty"`
	OfferedVacancyIDs  []string           `json:"offered_vacancy_ids"`
	SelectedVacancyID  string             `json:"selected_vacancy_id,omitempty"`
	FormToken          string             `json:"form_token,omitempty"`
	RepromptCount      int                `json:"reprompt_count"`
	Version            int64              `json:"version"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// NewLeadContext returns the initial context for an unseen sender.
func NewLeadContext(senderID string, initial Stage, now time.Time) *LeadContext {
	return &LeadContext{
		SenderID:           senderID,
		Stage:              initial,
		RequirementsStatus: RequirementsUnknown,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Clone returns a deep copy. The orchestrator evaluates transitions on a
// clone so a failed compare-and-swap never leaks a half-applied context.
func (l *LeadContext) Clone() *LeadContext {
	c := *l
	c.ReqAnswers = append([]bool(nil), l.ReqAnswers...)
	c.DiscAnswers = append([]DiscAnswer(nil), l.DiscAnswers...)
	c.OfferedVacancyIDs = append([]string(nil), l.OfferedVacancyIDs...)
	if l.DiscResult != nil {
		r := *l.DiscResult
		r.Scores = make(map[Dimension]int, len(l.DiscResult.Scores))
		for k, v := range l.DiscResult.Scores {
			r.Scores[k] = v
		}
		c.DiscResult = &r
	}
	return &c
}

// HasOffered reports whether a vacancy was already presented to the lead.
func (l *LeadContext) HasOffered(vacancyID string) bool {
	for _, id := range l.OfferedVacancyIDs {
		if id == vacancyID {
			return true
		}
	}
	return false
}
