package funnel

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/robertmcarvalho/rh-kelly-agent/internal/vacancy"
)

// Template keys the machine expects from the content provider.
const (
	TplChooseCity         = "choose_city"
	TplVacancyOffer       = "vacancy_offer"
	TplRequirementsFailed = "requirements_failed"
	TplNoVacancy          = "no_vacancy"
	TplFormHandoff        = "form_handoff"
	TplHumanHandoff       = "human_handoff"
	TplHumanWait          = "human_handoff_wait"
	TplConcluded          = "already_concluded"
	TplTryAgain           = "try_again"
	TplLabelYes           = "label_yes"
	TplLabelNo            = "label_no"
)

// ContentProvider supplies the fixed conversation content: intro script,
// requirement questions, DISC table and outbound templates. Content is static
// configuration; the machine never generates text at request time.
type ContentProvider interface {
	IntroScript() []string
	Requirements() []string
	DiscQuestions() []DiscQuestion
	// KnowledgeAnswer resolves a candidate question (payment, shifts,
	// equipment…) against the knowledge base.
	KnowledgeAnswer(text string) (answer string, ok bool)
	Template(key string) string
}

// Classifier turns a free-text reply into a best-guess structured selection
// for the current stage. Its output is a suggestion only — the machine
// re-validates it exactly like a direct selection.
type Classifier interface {
	Classify(ctx context.Context, stage Stage, text string) (selectionID string, ok bool, err error)
}

// Outcome labels what the machine decided for one inbound event.
type Outcome string

const (
	// OutcomeAdvance: the answer was accepted and the funnel progressed
	// (next question, or a stage transition).
	OutcomeAdvance Outcome = "advance"
	// OutcomeReprompt: unrecognized input, the current stage's prompt was
	// re-presented.
	OutcomeReprompt Outcome = "reprompt"
	// OutcomeReplay: the event required no state change — a redelivered
	// already-recorded answer, or a recognized candidate question; the
	// current prompt is re-sent and nothing is mutated.
	OutcomeReplay Outcome = "replay"
	// OutcomeTerminalAck: the lead is in a terminal stage; only the fixed
	// acknowledgment is sent.
	OutcomeTerminalAck Outcome = "terminal-ack"
)

// Decision is the explicit result of evaluating one event. Mutated tells the
// orchestrator whether the context must be written back.
type Decision struct {
	Outcome Outcome
	Mutated bool
	Intents []Intent
}

// Config carries the deployment-policy knobs of the machine.
type Config struct {
	// SkipIntro starts new leads directly at CITY_SELECTION.
	SkipIntro bool
	// MaxReprompts is the consecutive re-prompt cap per stage visit before
	// escalating to HUMAN_HANDOFF.
	MaxReprompts int
}

// Machine evaluates inbound events against a lead context. It is stateless:
// all per-candidate data lives in the LeadContext handed to Evaluate, so a
// single Machine is shared by all workers.
type Machine struct {
	content      ContentProvider
	vacancies    vacancy.Source
	classifier   Classifier // optional
	skipIntro    bool
	maxReprompts int
}

// NewMachine builds a Machine. classifier may be nil, in which case free-text
// city replies are simply unrecognized.
func NewMachine(content ContentProvider, src vacancy.Source, classifier Classifier, cfg Config) *Machine {
	max := cfg.MaxReprompts
	if max <= 0 {
		max = 3
	}
	return &Machine{
		content:      content,
		vacancies:    src,
		classifier:   classifier,
		skipIntro:    cfg.SkipIntro,
		maxReprompts: max,
	}
}

// InitialStage is the stage assigned to a freshly created lead.
func (m *Machine) InitialStage() Stage {
	if m.skipIntro {
		return StageCitySelection
	}
	return StageIntro
}

// Evaluate applies one inbound event to the lead, mutating it in place.
// Callers must pass a disposable copy: on any error the copy is discarded and
// nothing is persisted.
func (m *Machine) Evaluate(ctx context.Context, lead *LeadContext, ev Event) (Decision, error) {
	switch lead.Stage {
	case StageIntro:
		return m.handleIntro(ctx, lead)
	case StageCitySelection:
		return m.handleCitySelection(ctx, lead, ev)
	case StageRequirementsCheck:
		return m.handleRequirements(ctx, lead, ev)
	case StageDiscQuestionnaire:
		return m.handleDisc(ctx, lead, ev)
	case StageVacancyOffer:
		return m.handleVacancyOffer(ctx, lead, ev)
	case StageRequirementsFailed, StageNoVacancy, StageFormHandoff, StageHumanHandoff:
		return m.handleTerminal(lead, ev), nil
	}
	// Persisted stage not in the graph — config drift, not a crash.
	slog.Warn("event for unknown stage treated as unrecognized input",
		"stage", lead.Stage, "sender", lead.SenderID)
	return m.reprompt(ctx, lead, ev)
}

// ─── Stage handlers ──────────────────────────────────────────────────────────

func (m *Machine) handleIntro(ctx context.Context, lead *LeadContext) (Decision, error) {
	script := m.content.IntroScript()
	intents := make([]Intent, 0, len(script)+1)
	for _, line := range script {
		intents = append(intents, Intent{Recipient: lead.SenderID, Kind: IntentText, Body: line})
	}
	entry, err := m.advance(ctx, lead, StageCitySelection)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Outcome: OutcomeAdvance, Mutated: true, Intents: append(intents, entry...)}, nil
}

func (m *Machine) handleCitySelection(ctx context.Context, lead *LeadContext, ev Event) (Decision, error) {
	sel := ev.SelectionID
	if sel == "" && ev.Text != "" && m.classifier != nil {
		guess, ok, err := m.classifier.Classify(ctx, lead.Stage, ev.Text)
		if err != nil {
			slog.Warn("intent classifier failed, treating reply as unrecognized",
				"sender", lead.SenderID, "err", err)
		} else if ok {
			sel = guess // validated against the open-city list below
		}
	}

	slug, found := strings.CutPrefix(sel, "city:")
	if !found || slug == "" {
		return m.reprompt(ctx, lead, ev)
	}

	cities, err := m.vacancies.OpenCities(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("list open cities: %w", err)
	}
	for _, c := range cities {
		if Slugify(c) == slug {
			lead.City = c
			intents, err := m.advance(ctx, lead, StageRequirementsCheck)
			if err != nil {
				return Decision{}, err
			}
			return Decision{Outcome: OutcomeAdvance, Mutated: true, Intents: intents}, nil
		}
	}
	return m.reprompt(ctx, lead, ev)
}

func (m *Machine) handleRequirements(ctx context.Context, lead *LeadContext, ev Event) (Decision, error) {
	questions := m.content.Requirements()
	cur := len(lead.ReqAnswers)

	idx, yes, ok := parseReqSelection(ev, cur)
	if !ok {
		return m.reprompt(ctx, lead, ev)
	}
	if idx < cur {
		if lead.ReqAnswers[idx] == yes {
			return m.replay(ctx, lead) // redelivered answer already recorded
		}
		return m.reprompt(ctx, lead, ev)
	}
	if idx != cur || cur >= len(questions) {
		return m.reprompt(ctx, lead, ev)
	}

	lead.ReqAnswers = append(lead.ReqAnswers, yes)
	lead.RepromptCount = 0

	if !yes {
		// First negative short-circuits: remaining questions are never asked.
		lead.RequirementsStatus = RequirementsFailed
		intents, err := m.advance(ctx, lead, StageRequirementsFailed)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Outcome: OutcomeAdvance, Mutated: true, Intents: intents}, nil
	}
	if len(lead.ReqAnswers) == len(questions) {
		lead.RequirementsStatus = RequirementsPassed
		intents, err := m.advance(ctx, lead, StageDiscQuestionnaire)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Outcome: OutcomeAdvance, Mutated: true, Intents: intents}, nil
	}
	return Decision{Outcome: OutcomeAdvance, Mutated: true, Intents: m.requirementIntents(lead)}, nil
}

func (m *Machine) handleDisc(ctx context.Context, lead *LeadContext, ev Event) (Decision, error) {
	questions := m.content.DiscQuestions()
	cur := len(lead.DiscAnswers)

	idx, opt, ok := parseDiscSelection(ev.SelectionID)
	if !ok {
		return m.reprompt(ctx, lead, ev)
	}
	if idx < cur {
		if lead.DiscAnswers[idx].Option == opt {
			return m.replay(ctx, lead)
		}
		return m.reprompt(ctx, lead, ev)
	}
	if idx != cur || idx >= len(questions) || !optionExists(questions[idx], opt) {
		return m.reprompt(ctx, lead, ev)
	}

	lead.DiscAnswers = append(lead.DiscAnswers, DiscAnswer{Question: idx, Option: opt})
	lead.RepromptCount = 0

	if len(lead.DiscAnswers) == len(questions) {
		res := ScoreDisc(questions, lead.DiscAnswers)
		lead.DiscResult = &res
		intents, err := m.advance(ctx, lead, StageVacancyOffer)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Outcome: OutcomeAdvance, Mutated: true, Intents: intents}, nil
	}
	return Decision{Outcome: OutcomeAdvance, Mutated: true, Intents: m.discIntents(lead)}, nil
}

func (m *Machine) handleVacancyOffer(ctx context.Context, lead *LeadContext, ev Event) (Decision, error) {
	if id, found := strings.CutPrefix(ev.SelectionID, "vacancy:"); found && lead.HasOffered(id) {
		lead.SelectedVacancyID = id
		if lead.FormToken == "" {
			lead.FormToken = uuid.NewString()
		}
		intents, err := m.advance(ctx, lead, StageFormHandoff)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Outcome: OutcomeAdvance, Mutated: true, Intents: intents}, nil
	}
	return m.reprompt(ctx, lead, ev)
}

func (m *Machine) handleTerminal(lead *LeadContext, ev Event) Decision {
	if lead.Stage == StageFormHandoff {
		if _, found := strings.CutPrefix(ev.SelectionID, "vacancy:"); found {
			// Token already issued — re-selection re-sends the same link.
			return Decision{Outcome: OutcomeReplay, Intents: m.formHandoffIntents(lead)}
		}
	}
	key := TplConcluded
	if lead.Stage == StageHumanHandoff {
		key = TplHumanWait
	}
	return Decision{Outcome: OutcomeTerminalAck, Intents: m.templateIntents(lead, key, nil)}
}

// ─── Transitions and entry actions ───────────────────────────────────────────

// advance moves the lead to the target stage and returns the new stage's
// entry intents. Entering VACANCY_OFFER with nothing to offer cascades
// directly to NO_VACANCY_AVAILABLE.
func (m *Machine) advance(ctx context.Context, lead *LeadContext, to Stage) ([]Intent, error) {
	if !IsTransitionAllowed(lead.Stage, to) {
		return nil, fmt.Errorf("invalid transition %s → %s", lead.Stage, to)
	}
	lead.Stage = to
	lead.RepromptCount = 0

	if to == StageVacancyOffer {
		intents, any, err := m.vacancyOfferIntents(ctx, lead)
		if err != nil {
			return nil, err
		}
		if !any {
			return m.advance(ctx, lead, StageNoVacancy)
		}
		return intents, nil
	}
	return m.entryIntents(ctx, lead)
}

// entryIntents builds the prompt a stage sends on entry; it is also what a
// re-prompt re-sends.
func (m *Machine) entryIntents(ctx context.Context, lead *LeadContext) ([]Intent, error) {
	switch lead.Stage {
	case StageCitySelection:
		cities, err := m.vacancies.OpenCities(ctx)
		if err != nil {
			return nil, fmt.Errorf("list open cities: %w", err)
		}
		opts := make([]Option, 0, len(cities))
		for _, c := range cities {
			opts = append(opts, Option{ID: "city:" + Slugify(c), Label: c})
		}
		return []Intent{{
			Recipient: lead.SenderID,
			Kind:      IntentOptionList,
			Body:      m.content.Template(TplChooseCity),
			Options:   opts,
		}}, nil
	case StageRequirementsCheck:
		return m.requirementIntents(lead), nil
	case StageDiscQuestionnaire:
		return m.discIntents(lead), nil
	case StageVacancyOffer:
		intents, _, err := m.vacancyOfferIntents(ctx, lead)
		return intents, err
	case StageRequirementsFailed:
		return m.templateIntents(lead, TplRequirementsFailed, nil), nil
	case StageNoVacancy:
		return m.templateIntents(lead, TplNoVacancy, nil), nil
	case StageFormHandoff:
		return m.formHandoffIntents(lead), nil
	case StageHumanHandoff:
		return m.templateIntents(lead, TplHumanHandoff, nil), nil
	}
	return nil, nil
}

func (m *Machine) requirementIntents(lead *LeadContext) []Intent {
	questions := m.content.Requirements()
	idx := len(lead.ReqAnswers)
	if idx >= len(questions) {
		return nil
	}
	return []Intent{{
		Recipient: lead.SenderID,
		Kind:      IntentOptionList,
		Body:      questions[idx],
		Options: []Option{
			{ID: fmt.Sprintf("req:%d:yes", idx), Label: m.content.Template(TplLabelYes)},
			{ID: fmt.Sprintf("req:%d:no", idx), Label: m.content.Template(TplLabelNo)},
		},
	}}
}

func (m *Machine) discIntents(lead *LeadContext) []Intent {
	questions := m.content.DiscQuestions()
	idx, ok := NextDiscQuestion(questions, lead.DiscAnswers)
	if !ok {
		return nil
	}
	q := questions[idx]
	opts := make([]Option, 0, len(q.Options))
	for _, o := range q.Options {
		opts = append(opts, Option{ID: fmt.Sprintf("disc:%d:%s", idx, o.ID), Label: o.Label})
	}
	return []Intent{{
		Recipient: lead.SenderID,
		Kind:      IntentOptionList,
		Body:      q.Prompt,
		Options:   opts,
	}}
}

// vacancyOfferIntents lists the currently open vacancies for the lead's city.
// Vacancies seen for the first time are recorded in OfferedVacancyIDs so they
// never count as fresh offers twice; a re-prompt presents the same list.
func (m *Machine) vacancyOfferIntents(ctx context.Context, lead *LeadContext) ([]Intent, bool, error) {
	open, err := m.vacancies.ListOpen(ctx, lead.City)
	if err != nil {
		return nil, false, fmt.Errorf("list open vacancies: %w", err)
	}
	if len(open) == 0 {
		return nil, false, nil
	}
	opts := make([]Option, 0, len(open))
	for _, v := range open {
		if !lead.HasOffered(v.ID) {
			lead.OfferedVacancyIDs = append(lead.OfferedVacancyIDs, v.ID)
		}
		opts = append(opts, Option{
			ID:    "vacancy:" + v.ID,
			Label: fmt.Sprintf("%s — %s (%s)", v.Pharmacy, v.Shift, v.DeliveryFee),
		})
	}
	return []Intent{{
		Recipient: lead.SenderID,
		Kind:      IntentOptionList,
		Body:      m.content.Template(TplVacancyOffer),
		Options:   opts,
	}}, true, nil
}

func (m *Machine) formHandoffIntents(lead *LeadContext) []Intent {
	return m.templateIntents(lead, TplFormHandoff, map[string]string{
		"link":  FormLink(lead.City, lead.FormToken),
		"token": lead.FormToken,
	})
}

func (m *Machine) templateIntents(lead *LeadContext, key string, params map[string]string) []Intent {
	return []Intent{{
		Recipient:   lead.SenderID,
		Kind:        IntentTemplate,
		Body:        m.content.Template(key),
		TemplateKey: key,
		Params:      params,
	}}
}

// FormLink builds the downstream enrollment form URL from the city slug and
// the issued handoff token.
func FormLink(city, token string) string {
	return fmt.Sprintf("https://pipefy.com/form/%s?t=%s", Slugify(city), token)
}

// TryAgainIntent is the generic acknowledgment for a fatally failed request;
// no state was mutated when it is sent.
func (m *Machine) TryAgainIntent(senderID string) Intent {
	return Intent{
		Recipient:   senderID,
		Kind:        IntentTemplate,
		Body:        m.content.Template(TplTryAgain),
		TemplateKey: TplTryAgain,
	}
}

// ─── Re-prompt policy ────────────────────────────────────────────────────────

// reprompt handles input the current stage could not accept. A free-text
// message that matches the knowledge base is a question, not a failed answer:
// it gets the topic's answer plus the current prompt and costs no strike.
// Everything else re-presents the prompt and counts the strike; exhausting the
// cap escalates to HUMAN_HANDOFF instead of looping forever.
func (m *Machine) reprompt(ctx context.Context, lead *LeadContext, ev Event) (Decision, error) {
	if ev.Kind == EventText {
		if answer, ok := m.content.KnowledgeAnswer(ev.Text); ok {
			prompt, err := m.entryIntents(ctx, lead)
			if err != nil {
				return Decision{}, err
			}
			intents := append([]Intent{{Recipient: lead.SenderID, Kind: IntentText, Body: answer}}, prompt...)
			return Decision{Outcome: OutcomeReplay, Intents: intents}, nil
		}
	}

	lead.RepromptCount++
	if lead.RepromptCount > m.maxReprompts {
		intents, err := m.advance(ctx, lead, StageHumanHandoff)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Outcome: OutcomeAdvance, Mutated: true, Intents: intents}, nil
	}
	intents, err := m.entryIntents(ctx, lead)
	if err != nil {
		return Decision{}, err
	}
	if len(intents) == 0 && lead.Stage == StageVacancyOffer {
		// Every previously offered vacancy has closed in the meantime.
		intents, err = m.advance(ctx, lead, StageNoVacancy)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Outcome: OutcomeAdvance, Mutated: true, Intents: intents}, nil
	}
	return Decision{Outcome: OutcomeReprompt, Mutated: true, Intents: intents}, nil
}

// replay re-sends the current prompt without mutating anything.
func (m *Machine) replay(ctx context.Context, lead *LeadContext) (Decision, error) {
	intents, err := m.entryIntents(ctx, lead)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Outcome: OutcomeReplay, Intents: intents}, nil
}

// ─── Selection parsing ───────────────────────────────────────────────────────

// parseReqSelection reads a requirement answer either from the structured
// option ID or from a normalized free-text yes/no aimed at question cur.
func parseReqSelection(ev Event, cur int) (idx int, yes, ok bool) {
	if rest, found := strings.CutPrefix(ev.SelectionID, "req:"); found {
		parts := strings.SplitN(rest, ":", 2)
		if len(parts) != 2 {
			return 0, false, false
		}
		i, err := strconv.Atoi(parts[0])
		if err != nil || i < 0 {
			return 0, false, false
		}
		switch parts[1] {
		case "yes":
			return i, true, true
		case "no":
			return i, false, true
		}
		return 0, false, false
	}
	if ev.Kind == EventText {
		if y, found := parseYesNo(ev.Text); found {
			return cur, y, true
		}
	}
	return 0, false, false
}

func parseDiscSelection(sel string) (idx int, option string, ok bool) {
	rest, found := strings.CutPrefix(sel, "disc:")
	if !found {
		return 0, "", false
	}
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return 0, "", false
	}
	i, err := strconv.Atoi(parts[0])
	if err != nil || i < 0 {
		return 0, "", false
	}
	return i, parts[1], true
}

func optionExists(q DiscQuestion, optionID string) bool {
	for _, o := range q.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}
