// Package moderation masks forbidden words in chat message bodies.
//
// Matching runs on a normalized copy of the text: lower case, common leet
// substitutions folded back to letters, punctuation, symbols and whitespace
// dropped. Every matched span is then masked in the original text, so
// "B.4.d.g.€r" is caught by "badger" and replaced rune for rune.
package moderation

import (
	"errors"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

var ErrNoWords = errors.New("no censorable words")

// Moderator is safe for concurrent use once built.
type Moderator struct {
	machine *goahocorasick.Machine
	mask    rune
}

// NewModerator builds the matcher for words. Words that normalize to nothing
// are skipped.
func NewModerator(words []string, mask rune) (*Moderator, error) {
	patterns := lo.FilterMap(words, func(word string, _ int) ([]rune, bool) {
		folded, _ := fold(strings.TrimSpace(word))
		return folded, len(folded) > 0
	})
	if len(patterns) == 0 {
		return nil, ErrNoWords
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{machine: machine, mask: mask}, nil
}

// Censor returns text with every forbidden word masked.
func (m *Moderator) Censor(text string) string {
	folded, origin := fold(text)
	if len(folded) == 0 {
		return text
	}
	hits := m.machine.MultiPatternSearch(folded, false)
	if len(hits) == 0 {
		return text
	}

	runes := []rune(text)
	for _, hit := range hits {
		end := hit.Pos + len(hit.Word)
		if hit.Pos < 0 || end > len(origin) {
			continue
		}
		for i := origin[hit.Pos]; i <= origin[end-1]; i++ {
			runes[i] = m.mask
		}
	}
	return string(runes)
}

// fold normalizes s and returns, for each kept rune, its index in s.
func fold(s string) ([]rune, []int) {
	runes := []rune(s)
	folded := make([]rune, 0, len(runes))
	origin := make([]int, 0, len(runes))
	for i, r := range runes {
		r = unleet(r)
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		folded = append(folded, unicode.ToLower(r))
		origin = append(origin, i)
	}
	return folded, origin
}

func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	}
	return r
}
