// Package content loads the fixed conversation content: intro script,
// requirement questions, DISC questionnaire and outbound templates.
// Content is static configuration read once at startup.
package content

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/robertmcarvalho/rh-kelly-agent/internal/funnel"
)

//go:embed default.yaml
var defaultYAML []byte

// requiredTemplates are the keys the state machine renders; Load fails fast
// when any is missing so a broken content file never reaches production.
var requiredTemplates = []string{
	funnel.TplChooseCity,
	funnel.TplVacancyOffer,
	funnel.TplRequirementsFailed,
	funnel.TplNoVacancy,
	funnel.TplFormHandoff,
	funnel.TplHumanHandoff,
	funnel.TplHumanWait,
	funnel.TplConcluded,
	funnel.TplTryAgain,
	funnel.TplLabelYes,
	funnel.TplLabelNo,
}

type knowledgeSpec struct {
	Topic    string   `yaml:"topic"`
	Keywords []string `yaml:"keywords"`
	Answer   string   `yaml:"answer"`
}

type discOptionSpec struct {
	ID        string `yaml:"id"`
	Label     string `yaml:"label"`
	Dimension string `yaml:"dimension"`
}

type discQuestionSpec struct {
	Prompt  string           `yaml:"prompt"`
	Options []discOptionSpec `yaml:"options"`
}

type fileSpec struct {
	Intro        []string           `yaml:"intro"`
	Requirements []string           `yaml:"requirements"`
	Disc         []discQuestionSpec `yaml:"disc"`
	Knowledge    []knowledgeSpec    `yaml:"knowledge"`
	Templates    map[string]string  `yaml:"templates"`
}

// knowledgeEntry is one FAQ topic with its pre-normalized match keywords.
type knowledgeEntry struct {
	topic    string
	keywords []string
	answer   string
}

// Content is an immutable, validated content table. It implements
// funnel.ContentProvider.
type Content struct {
	intro        []string
	requirements []string
	disc         []funnel.DiscQuestion
	knowledge    []knowledgeEntry
	templates    map[string]string
}

// Load reads the content file at path, or the embedded default when path is
// empty.
func Load(path string) (*Content, error) {
	raw := defaultYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read content file: %w", err)
		}
		raw = b
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML content document.
func Parse(raw []byte) (*Content, error) {
	var spec fileSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("parse content yaml: %w", err)
	}

	if len(spec.Requirements) == 0 {
		return nil, fmt.Errorf("content: at least one requirement question is required")
	}
	if len(spec.Disc) == 0 {
		return nil, fmt.Errorf("content: at least one DISC question is required")
	}
	for _, key := range requiredTemplates {
		if spec.Templates[key] == "" {
			return nil, fmt.Errorf("content: missing template %q", key)
		}
	}

	disc := make([]funnel.DiscQuestion, 0, len(spec.Disc))
	for qi, q := range spec.Disc {
		if q.Prompt == "" {
			return nil, fmt.Errorf("content: DISC question %d has no prompt", qi)
		}
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("content: DISC question %d needs at least two options", qi)
		}
		opts := make([]funnel.DiscOption, 0, len(q.Options))
		seen := map[string]bool{}
		for oi, o := range q.Options {
			dim := funnel.Dimension(o.Dimension)
			if !funnel.ValidDimension(dim) {
				return nil, fmt.Errorf("content: DISC question %d option %d has invalid dimension %q", qi, oi, o.Dimension)
			}
			if o.ID == "" || seen[o.ID] {
				return nil, fmt.Errorf("content: DISC question %d option %d has missing or duplicate id", qi, oi)
			}
			seen[o.ID] = true
			opts = append(opts, funnel.DiscOption{ID: o.ID, Label: o.Label, Dimension: dim})
		}
		disc = append(disc, funnel.DiscQuestion{Prompt: q.Prompt, Options: opts})
	}

	knowledge := make([]knowledgeEntry, 0, len(spec.Knowledge))
	for ki, k := range spec.Knowledge {
		if k.Topic == "" || k.Answer == "" || len(k.Keywords) == 0 {
			return nil, fmt.Errorf("content: knowledge entry %d needs a topic, keywords and an answer", ki)
		}
		kws := make([]string, 0, len(k.Keywords))
		for _, kw := range k.Keywords {
			n := normalize(kw)
			if n == "" {
				return nil, fmt.Errorf("content: knowledge entry %d has an empty keyword", ki)
			}
			kws = append(kws, n)
		}
		knowledge = append(knowledge, knowledgeEntry{topic: k.Topic, keywords: kws, answer: k.Answer})
	}

	return &Content{
		intro:        spec.Intro,
		requirements: spec.Requirements,
		disc:         disc,
		knowledge:    knowledge,
		templates:    spec.Templates,
	}, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(funnel.StripAccents(s)))
}

func (c *Content) IntroScript() []string { return c.intro }

func (c *Content) Requirements() []string { return c.requirements }

func (c *Content) DiscQuestions() []funnel.DiscQuestion { return c.disc }

// KnowledgeAnswer matches a candidate question against the knowledge base by
// accent-insensitive keyword containment and returns the topic's answer.
func (c *Content) KnowledgeAnswer(text string) (string, bool) {
	needle := normalize(text)
	if needle == "" {
		return "", false
	}
	for _, e := range c.knowledge {
		for _, kw := range e.keywords {
			if strings.Contains(needle, kw) {
				return e.answer, true
			}
		}
	}
	return "", false
}

// Template returns the text for key, or an empty string for unknown keys
// (Load guarantees every key the machine uses exists).
func (c *Content) Template(key string) string { return c.templates[key] }
