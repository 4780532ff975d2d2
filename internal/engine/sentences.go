package engine

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/yungbote/lesson-pipeline/internal/llm"
)

// ExtractSentences implements spec.md §4.4 stage 3: prefer the LLM for up to
// n "teachable" sentences; the heuristic fallback selects sentences that
// contain at least one extracted vocabulary item and fall within length
// bounds, grounded on generators.py's _extract_sentences pronoun/length
// filter.
func ExtractSentences(ctx context.Context, client *llm.Client, sentences []string, vocab []VocabItem, n int) ([]string, Source) {
	if client != nil {
		if picked, ok := extractSentencesLLM(ctx, client, sentences, n); ok {
			return picked, SourceLLM
		}
	}
	return extractSentencesHeuristic(sentences, vocab, n), SourceHeuristic
}

func extractSentencesLLM(ctx context.Context, client *llm.Client, sentences []string, n int) ([]string, bool) {
	if len(sentences) == 0 {
		return nil, false
	}
	prompt := "Transcript sentences:\n" + strings.Join(sentences, "\n") +
		"\n\nReturn a JSON array of up to the most teachable sentences verbatim from the list above, for use as language-learning examples."
	text, variant, err := client.Complete(ctx, "You select teachable example sentences for a language-learning exercise generator.", prompt)
	if err != nil || variant != llm.Available {
		return nil, false
	}
	var picked []string
	if err := json.Unmarshal([]byte(extractJSONArray(text)), &picked); err != nil {
		return nil, false
	}
	out := make([]string, 0, n)
	for _, s := range picked {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) >= n {
			break
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func extractSentencesHeuristic(sentences []string, vocab []VocabItem, n int) []string {
	vocabSet := make(map[string]struct{}, len(vocab))
	for _, v := range vocab {
		vocabSet[strings.ToLower(v.Word)] = struct{}{}
	}

	out := make([]string, 0, n)
	for _, s := range sentences {
		if !containsPronoun(s) {
			continue
		}
		words := tokenizeWords(s)
		if len(words) < 5 || len(words) > 20 {
			continue
		}
		if !sentenceContainsAnyVocab(words, vocabSet) {
			continue
		}
		out = append(out, s)
		if len(out) >= n {
			break
		}
	}
	return out
}

var pronouns = map[string]struct{}{
	"i": {}, "you": {}, "he": {}, "she": {}, "we": {}, "they": {}, "it": {},
}

func containsPronoun(s string) bool {
	for _, w := range tokenizeWords(s) {
		if _, ok := pronouns[w]; ok {
			return true
		}
	}
	return false
}

func sentenceContainsAnyVocab(words []string, vocabSet map[string]struct{}) bool {
	if len(vocabSet) == 0 {
		return true
	}
	for _, w := range words {
		if _, ok := vocabSet[w]; ok {
			return true
		}
	}
	return false
}
