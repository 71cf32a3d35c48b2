package fulltextindex

import (
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// classicStopWords is the short english list; postings already on disk were
// written against it.
var classicStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by",
	"for", "if", "in", "into", "is", "it", "no", "not", "of",
	"on", "or", "such", "that", "the", "their", "then", "there",
	"these", "they", "this", "to", "was", "will", "with",
}

var analyzer = newAnalyzer()

func newAnalyzer() *analysis.DefaultAnalyzer {
	stopWords := analysis.NewTokenMap()
	for _, word := range classicStopWords {
		stopWords.AddToken(word)
	}

	return &analysis.DefaultAnalyzer{
		Tokenizer: unicode.NewUnicodeTokenizer(),
		TokenFilters: []analysis.TokenFilter{
			lowercase.NewLowerCaseFilter(),
			stop.NewStopTokensFilter(stopWords),
		},
	}
}

// Analyze splits the text on unicode word boundaries, lowercases every token
// and drops english stop words.
func Analyze(text string) []string {
	stream := analyzer.Analyze([]byte(text))

	tokens := make([]string, 0, len(stream))
	for _, token := range stream {
		tokens = append(tokens, string(token.Term))
	}

	return tokens
}

// analyzeQuery runs every query string through Analyze and keeps the first
// occurrence of each token.
func analyzeQuery(terms []string) []string {
	seen := make(map[string]struct{})
	var tokens []string
	for _, term := range terms {
		for _, token := range Analyze(term) {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			tokens = append(tokens, token)
		}
	}

	return tokens
}
