package content_test

import (
	"testing"

	"github.com/robertmcarvalho/rh-kelly-agent/internal/content"
	"github.com/robertmcarvalho/rh-kelly-agent/internal/funnel"
)

func TestLoad_EmbeddedDefault(t *testing.T) {
	c, err := content.Load("")
	if err != nil {
		t.Fatalf("Load(\"\") unexpected error: %v", err)
	}
	if len(c.IntroScript()) == 0 {
		t.Error("default content must ship an intro script")
	}
	if len(c.Requirements()) == 0 {
		t.Error("default content must ship requirement questions")
	}
	if len(c.DiscQuestions()) == 0 {
		t.Error("default content must ship DISC questions")
	}
	if c.Template(funnel.TplTryAgain) == "" {
		t.Error("default content must ship the try_again template")
	}
}

func TestKnowledgeAnswer(t *testing.T) {
	c, err := content.Load("")
	if err != nil {
		t.Fatalf("Load(\"\") unexpected error: %v", err)
	}

	// Accent-insensitive: "horário" keyword must match unaccented text too.
	if _, ok := c.KnowledgeAnswer("qual o horario de trabalho?"); !ok {
		t.Error("question about working hours should match the knowledge base")
	}
	if answer, ok := c.KnowledgeAnswer("Quanto vou ganhar?"); !ok || answer == "" {
		t.Errorf("payment question should resolve to an answer, got (%q, %v)", answer, ok)
	}
	if _, ok := c.KnowledgeAnswer("xyzzy"); ok {
		t.Error("unrelated text must not match the knowledge base")
	}
	if _, ok := c.KnowledgeAnswer(""); ok {
		t.Error("empty text must not match the knowledge base")
	}
}

func TestParse_RejectsKnowledgeEntryWithoutKeywords(t *testing.T) {
	_, err := content.Parse([]byte(`
requirements: ["q1"]
disc:
  - prompt: "p"
    options:
      - {id: "a", label: "a", dimension: "D"}
      - {id: "b", label: "b", dimension: "I"}
knowledge:
  - topic: "pagamento"
    keywords: []
    answer: "x"
templates:
  choose_city: "x"
  vacancy_offer: "x"
  requirements_failed: "x"
  no_vacancy: "x"
  form_handoff: "x"
  human_handoff: "x"
  human_handoff_wait: "x"
  already_concluded: "x"
  try_again: "x"
  label_yes: "x"
  label_no: "x"
`))
	if err == nil {
		t.Fatal("Parse should reject a knowledge entry with no keywords")
	}
}

func TestParse_RejectsInvalidDimension(t *testing.T) {
	_, err := content.Parse([]byte(`
requirements: ["q1"]
disc:
  - prompt: "p"
    options:
      - {id: "a", label: "a", dimension: "X"}
      - {id: "b", label: "b", dimension: "I"}
templates:
  choose_city: "x"
`))
	if err == nil {
		t.Fatal("Parse should reject a DISC option with dimension X")
	}
}

func TestParse_RejectsMissingTemplate(t *testing.T) {
	_, err := content.Parse([]byte(`
requirements: ["q1"]
disc:
  - prompt: "p"
    options:
      - {id: "a", label: "a", dimension: "D"}
      - {id: "b", label: "b", dimension: "I"}
templates:
  choose_city: "x"
`))
	if err == nil {
		t.Fatal("Parse should reject content missing required templates")
	}
}

func TestParse_RejectsDuplicateOptionIDs(t *testing.T) {
	_, err := content.Parse([]byte(`
requirements: ["q1"]
disc:
  - prompt: "p"
    options:
      - {id: "a", label: "a", dimension: "D"}
      - {id: "a", label: "b", dimension: "I"}
templates:
  choose_city: "x"
`))
	if err == nil {
		t.Fatal("Parse should reject duplicate option ids within a question")
	}
}
