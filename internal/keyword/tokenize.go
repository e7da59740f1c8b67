package keyword

import (
	"strings"
	"unicode"
)

type runeClass int

const (
	classSep runeClass = iota
	classWord
	classCJK
)

func classify(r rune) runeClass {
	switch {
	case unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana), r == 'ー', r == '々':
		return classCJK
	case unicode.IsLetter(r), unicode.IsDigit(r):
		return classWord
	default:
		return classSep
	}
}

// Tokenize lowercases text and splits it into index terms.
// Latin/digit runs become whole words; CJK runs become overlapping bigrams
// (a lone CJK character is kept as a unigram), which makes Japanese text
// searchable without a dictionary.
func Tokenize(text string) []string {
	text = strings.ToLower(text)

	var tokens []string
	var run []rune
	cls := classSep

	flush := func() {
		switch cls {
		case classWord:
			tokens = append(tokens, string(run))
		case classCJK:
			tokens = appendBigrams(tokens, run)
		}
		run = run[:0]
	}

	for _, r := range text {
		c := classify(r)
		if c != cls {
			flush()
			cls = c
		}
		if c != classSep {
			run = append(run, r)
		}
	}
	flush()

	return tokens
}

func appendBigrams(tokens []string, run []rune) []string {
	if len(run) == 1 {
		return append(tokens, string(run))
	}
	for i := 0; i+1 < len(run); i++ {
		tokens = append(tokens, string(run[i:i+2]))
	}
	return tokens
}
