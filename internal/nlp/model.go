// Package nlp turns free-text complaints into canonical token sequences.
//
// A Model bundles the language resources a Normalizer needs: a tokenizer,
// a lemmatizer and a closed stop-word set. Models are built once by the
// caller (LoadEnglish for production, NewModel for tests) and passed into
// the pipeline explicitly.
package nlp

import (
	"fmt"
	"strings"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	"github.com/jdkato/prose/v2"
)

// Tokenizer splits raw text into word tokens, preserving order.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Lemmatizer reduces a lowercase word to its dictionary base form.
// Unknown words are returned unchanged.
type Lemmatizer interface {
	Lemma(word string) string
}

// Model holds the language resources shared by every normalization call.
type Model struct {
	tokenizer  Tokenizer
	lemmatizer Lemmatizer
	stopWords  map[string]struct{}
}

// NewModel builds a Model from explicit components. A nil stop-word list
// selects EnglishStopWords.
func NewModel(t Tokenizer, l Lemmatizer, stopWords []string) *Model {
	if stopWords == nil {
		stopWords = EnglishStopWords
	}
	set := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &Model{tokenizer: t, lemmatizer: l, stopWords: set}
}

// LoadEnglish loads the English lemma dictionary and the prose tokenizer.
// Loading the dictionary takes a noticeable moment, so callers should do it
// once per process and reuse the Model.
func LoadEnglish() (*Model, error) {
	lem, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("load english lemma dictionary: %w", err)
	}
	return NewModel(ProseTokenizer{}, lem, nil), nil
}

// IsStopWord reports whether w (lowercase) is in the model's stop-word set.
func (m *Model) IsStopWord(w string) bool {
	_, ok := m.stopWords[w]
	return ok
}

// ProseTokenizer tokenizes with prose's rule-based English tokenizer.
// Contractions split the same way a typical NLP pipeline does ("don't" -> "do", "n't").
type ProseTokenizer struct{}

func (ProseTokenizer) Tokenize(text string) []string {
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return strings.Fields(text)
	}
	tokens := doc.Tokens()
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, tok.Text)
	}
	return out
}

// FieldsTokenizer splits on any rune that is not a letter, digit or apostrophe.
type FieldsTokenizer struct{}

func (FieldsTokenizer) Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !isWordRune(r)
	})
}

// IdentityLemmatizer returns every word unchanged.
type IdentityLemmatizer struct{}

func (IdentityLemmatizer) Lemma(word string) string { return word }

// MapLemmatizer looks words up in a fixed table.
type MapLemmatizer map[string]string

func (m MapLemmatizer) Lemma(word string) string {
	if l, ok := m[word]; ok {
		return l
	}
	return word
}
