// Package entity resolves which corpus partition a question is about, from
// the question itself or from the session's earlier questions.
package entity

import (
	"fmt"
	"strings"
)

// Term is one entity of the vocabulary with the spellings that name it.
type Term struct {
	Name    string
	Aliases []string
}

type alias struct {
	text  string // lowercased
	name  string
	order int
}

// Vocabulary matches known entity names inside free text.
type Vocabulary struct {
	aliases []alias
	names   []string
}

// NewVocabulary builds a vocabulary. Names are lowercased and always match
// themselves; empty aliases are ignored.
func NewVocabulary(terms []Term) (*Vocabulary, error) {
	v := &Vocabulary{}
	seen := make(map[string]struct{}, len(terms))
	for i, t := range terms {
		name := strings.ToLower(strings.TrimSpace(t.Name))
		if name == "" {
			return nil, fmt.Errorf("entity %d: empty name", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("entity %q declared twice", name)
		}
		seen[name] = struct{}{}
		v.names = append(v.names, name)

		v.aliases = append(v.aliases, alias{text: name, name: name, order: i})
		for _, a := range t.Aliases {
			a = strings.ToLower(strings.TrimSpace(a))
			if a == "" || a == name {
				continue
			}
			v.aliases = append(v.aliases, alias{text: a, name: name, order: i})
		}
	}
	return v, nil
}

// Names returns the canonical entity names in declaration order.
func (v *Vocabulary) Names() []string { return v.names }

// Detect returns the entity whose alias occurs earliest in text.
// Equal positions go to the entity declared first.
func (v *Vocabulary) Detect(text string) (string, bool) {
	lower := strings.ToLower(text)
	best, bestPos, bestOrder := "", -1, 0
	for _, a := range v.aliases {
		pos := strings.Index(lower, a.text)
		if pos < 0 {
			continue
		}
		if bestPos < 0 || pos < bestPos || (pos == bestPos && a.order < bestOrder) {
			best, bestPos, bestOrder = a.name, pos, a.order
		}
	}
	return best, bestPos >= 0
}
