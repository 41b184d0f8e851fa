package funnel_test

import (
	"testing"

	"github.com/robertmcarvalho/rh-kelly-agent/internal/funnel"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"São Paulo", "sao-paulo"},
		{"Ribeirão Preto", "ribeirao-preto"},
		{"BELO HORIZONTE", "belo-horizonte"},
		{"  Campinas ", "campinas"},
		{"Brasília", "brasilia"},
	}
	for _, c := range cases {
		if got := funnel.Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestStripAccents(t *testing.T) {
	if got := funnel.StripAccents("não"); got != "nao" {
		t.Errorf("StripAccents(\"não\") = %q, want \"nao\"", got)
	}
	if got := funnel.StripAccents("ja tenho cnh"); got != "ja tenho cnh" {
		t.Errorf("StripAccents must not alter plain ASCII, got %q", got)
	}
}
