package nlp

import (
	"strings"
	"unicode"
)

// maxLemmaSteps bounds the lemma fixpoint loop. Dictionary chains are short
// ("left" -> "leave"), so a few steps always reach a stable form.
const maxLemmaSteps = 4

// Normalizer maps raw complaint text to a canonical, space-joined token sequence.
type Normalizer struct {
	model *Model
}

// NewNormalizer returns a Normalizer backed by m.
func NewNormalizer(m *Model) *Normalizer {
	return &Normalizer{model: m}
}

// Normalize lowercases text, tokenizes it, keeps purely alphabetic non-stop-word
// tokens, lemmatizes them and joins the result with single spaces.
// Empty input yields the empty string.
//
// Normalize is idempotent: lemmas are iterated to a fixpoint and filtered again,
// so re-normalizing the output returns it unchanged.
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return ""
	}
	tokens := n.model.tokenizer.Tokenize(strings.ToLower(text))

	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !isAlpha(tok) || n.model.IsStopWord(tok) {
			continue
		}
		lemma := n.lemma(tok)
		if !isAlpha(lemma) || n.model.IsStopWord(lemma) {
			continue
		}
		kept = append(kept, lemma)
	}
	return strings.Join(kept, " ")
}

// NormalizeAll normalizes every text, preserving order.
func (n *Normalizer) NormalizeAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = n.Normalize(t)
	}
	return out
}

func (n *Normalizer) lemma(word string) string {
	for i := 0; i < maxLemmaSteps; i++ {
		next := strings.ToLower(n.model.lemmatizer.Lemma(word))
		if next == "" || next == word {
			break
		}
		word = next
	}
	return word
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\''
}
