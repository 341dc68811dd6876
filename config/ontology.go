package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/agentgov/gatekeeper/gwerrors"
	"github.com/agentgov/gatekeeper/ontology"
)

// overlayFile is the TOML shape operators author by hand to extend or
// override the built-in symbol catalog without a recompile.
type overlayFile struct {
	Symbol []overlaySymbol `toml:"symbol"`
}

type overlaySymbol struct {
	Codepoint   string `toml:"codepoint"`
	Category    string `toml:"category"`
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Strength    int    `toml:"strength"`
	Inherits    bool   `toml:"inherits"`
	Level       int    `toml:"level"`
}

// LoadOntologyOverlay parses a TOML catalog overlay file into a slice of
// ontology.Symbol suitable for passing as a trailing catalog to
// ontology.New, so overlay entries win over DefaultCatalog on collision.
//
//	reg := ontology.New(ontology.DefaultCatalog(), overlay)
func LoadOntologyOverlay(path string) ([]ontology.Symbol, error) {
	var raw overlayFile
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, gwerrors.NewWithCause(gwerrors.KindConfiguration, fmt.Sprintf("decode ontology overlay %s", path), err)
	}

	out := make([]ontology.Symbol, 0, len(raw.Symbol))
	for _, s := range raw.Symbol {
		cps := []rune(s.Codepoint)
		if len(cps) != 1 {
			return nil, gwerrors.Configurationf("ontology overlay entry %q: codepoint must be exactly one character", s.Name)
		}
		cat, err := parseCategory(s.Category)
		if err != nil {
			return nil, gwerrors.NewWithCause(gwerrors.KindConfiguration, fmt.Sprintf("ontology overlay entry %q", s.Name), err)
		}
		out = append(out, ontology.Symbol{
			Codepoint: cps[0],
			Category:  cat,
			Attributes: ontology.Attributes{
				Name:        s.Name,
				Description: s.Description,
				Strength:    s.Strength,
				Inherits:    s.Inherits,
				Level:       s.Level,
			},
		})
	}
	return out, nil
}

func parseCategory(s string) (ontology.Category, error) {
	switch ontology.Category(s) {
	case ontology.CategoryMode, ontology.CategoryDomain, ontology.CategoryAction,
		ontology.CategoryConstraint, ontology.CategoryModifier, ontology.CategoryEntity:
		return ontology.Category(s), nil
	default:
		return "", gwerrors.Configurationf("unknown category %q", s)
	}
}
