// Package classifier normalizes free-text replies into structured selections.
//
// The production deployment may plug an external text-classification oracle
// behind the funnel.Classifier contract; Keyword is the built-in fallback
// that matches city names by accent-insensitive containment. Either way the
// output is only a suggestion — the state machine re-validates it against the
// current option set before acting on it.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/robertmcarvalho/rh-kelly-agent/internal/funnel"
	"github.com/robertmcarvalho/rh-kelly-agent/internal/vacancy"
)

// Keyword guesses a city selection from free text.
type Keyword struct {
	vacancies vacancy.Source
}

// NewKeyword returns a Keyword classifier over the given vacancy source.
func NewKeyword(src vacancy.Source) *Keyword {
	return &Keyword{vacancies: src}
}

// Classify handles only CITY_SELECTION; other stages interpret their own
// free text (yes/no normalization lives in the machine).
func (k *Keyword) Classify(ctx context.Context, stage funnel.Stage, text string) (string, bool, error) {
	if stage != funnel.StageCitySelection {
		return "", false, nil
	}
	needle := funnel.Slugify(text)
	if needle == "" {
		return "", false, nil
	}

	cities, err := k.vacancies.OpenCities(ctx)
	if err != nil {
		return "", false, fmt.Errorf("list open cities: %w", err)
	}
	for _, c := range cities {
		slug := funnel.Slugify(c)
		if slug == needle || strings.Contains(needle, slug) {
			return "city:" + slug, true, nil
		}
	}
	return "", false, nil
}
