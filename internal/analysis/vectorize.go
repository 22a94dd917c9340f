package analysis

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// reTerm matches terms of two or more word characters.
var reTerm = regexp.MustCompile(`\b\w\w+\b`)

// TFIDF holds the fitted vocabulary and inverse document frequencies.
type TFIDF struct {
	Vocabulary []string
	IDF        []float64
	index      map[string]int
}

// FitTFIDF builds a TF-IDF matrix (one L2-normalized row per document) over
// the corpus vocabulary, skipping terms for which isStop returns true.
// Vocabulary terms are sorted so column order is deterministic.
// idf(t) = ln((1+n)/(1+df(t))) + 1, tf is the raw term count.
//
// The returned matrix is nil when no document contains a usable term.
func FitTFIDF(docs []string, isStop func(string) bool) (*TFIDF, *mat.Dense) {
	termsPerDoc := make([][]string, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		terms := tokenizeTerms(doc, isStop)
		termsPerDoc[i] = terms
		seen := make(map[string]bool, len(terms))
		for _, term := range terms {
			if !seen[term] {
				seen[term] = true
				df[term]++
			}
		}
	}

	vocab := make([]string, 0, len(df))
	for term := range df {
		vocab = append(vocab, term)
	}
	sort.Strings(vocab)

	t := &TFIDF{Vocabulary: vocab, IDF: make([]float64, len(vocab)), index: make(map[string]int, len(vocab))}
	n := float64(len(docs))
	for i, term := range vocab {
		t.index[term] = i
		t.IDF[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	if len(vocab) == 0 || len(docs) == 0 {
		return t, nil
	}

	x := mat.NewDense(len(docs), len(vocab), nil)
	for i, terms := range termsPerDoc {
		row := x.RawRowView(i)
		for _, term := range terms {
			row[t.index[term]]++
		}
		for j := range row {
			row[j] *= t.IDF[j]
		}
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
	}
	return t, x
}

func tokenizeTerms(doc string, isStop func(string) bool) []string {
	raw := reTerm.FindAllString(strings.ToLower(doc), -1)
	terms := raw[:0]
	for _, term := range raw {
		if isStop != nil && isStop(term) {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}
