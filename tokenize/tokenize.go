// Package tokenize lowercases, splits, stopword-filters, and stems text
// for the recall engine's scorer and query classifier.
package tokenize

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "been": true, "being": true, "but": true, "by": true,
	"can": true, "did": true, "do": true, "does": true, "for": true,
	"from": true, "had": true, "has": true, "have": true, "he": true,
	"her": true, "him": true, "his": true, "how": true, "if": true,
	"in": true, "into": true, "is": true, "it": true, "its": true,
	"of": true, "on": true, "or": true, "our": true, "she": true,
	"so": true, "that": true, "the": true, "their": true, "them": true,
	"then": true, "there": true, "these": true, "they": true, "this": true,
	"those": true, "to": true, "was": true, "we": true, "were": true,
	"what": true, "when": true, "where": true, "which": true, "who": true,
	"why": true, "will": true, "with": true, "would": true, "you": true,
	"your": true,
}

// ordered suffix table applied after plural reduction; the first match
// wins. Names follow the spec's listed order.
var suffixes = []string{"ing", "ed", "tion", "sion", "ment", "ness", "ous", "ful", "ly", "able", "ible", "er", "est", "ation", "ate"}

// Stem applies the reduced Porter-style stemmer: deterministic,
// context-free, a no-op for words of length <= 3. The reduction is
// repeated until the word stops changing, so Stem(Stem(w)) == Stem(w).
func Stem(word string) string {
	if len(word) <= 3 {
		return word
	}
	w := word
	for len(w) > 3 {
		prev := w

		switch {
		case strings.HasSuffix(w, "ies") && len(w) > 4:
			w = w[:len(w)-3] + "y"
		case strings.HasSuffix(w, "es") && len(w) > 4:
			if c := w[:len(w)-2]; len(c) >= 3 {
				w = c
			}
		case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && len(w) > 3:
			if c := w[:len(w)-1]; len(c) >= 3 {
				w = c
			}
		}

		for _, suf := range suffixes {
			if strings.HasSuffix(w, suf) {
				if c := w[:len(w)-len(suf)]; len(c) >= 3 {
					w = c
					break
				}
			}
		}

		if strings.HasSuffix(w, "at") || strings.HasSuffix(w, "iz") || strings.HasSuffix(w, "bl") {
			w += "e"
		}
		if w == prev {
			break
		}
	}
	return w
}

// Tokenize lowercases text, splits on alphanumeric runs, drops stopwords
// and single-character tokens, and stems what remains.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	words := wordPattern.FindAllString(lower, -1)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) <= 1 || stopwords[w] {
			continue
		}
		out = append(out, Stem(w))
	}
	return out
}
