package engine

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/yungbote/lesson-pipeline/internal/llm"
)

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "so": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "being": {}, "to": {}, "of": {}, "in": {}, "on": {},
	"at": {}, "for": {}, "with": {}, "as": {}, "by": {}, "that": {}, "this": {}, "it": {}, "its": {},
	"i": {}, "you": {}, "he": {}, "she": {}, "we": {}, "they": {}, "yeah": {}, "okay": {}, "um": {},
	"uh": {}, "like": {}, "just": {}, "do": {}, "does": {}, "did": {}, "have": {}, "has": {}, "had": {},
	"not": {}, "no": {}, "yes": {}, "what": {}, "your": {}, "my": {}, "me": {}, "him": {}, "her": {},
}

// ExtractVocabulary implements spec.md §4.4 stage 2: prefer the LLM for up
// to n candidates; on anything other than llm.Available, fall back to a
// frequency-filtered non-stopword heuristic biased toward mid-frequency
// tokens (generators.py has no direct equivalent — the Python original
// receives vocabulary from an upstream NLP step — so the heuristic here is
// grounded on spec.md's own description of the fallback).
func ExtractVocabulary(ctx context.Context, client *llm.Client, sentences []string, n int) []VocabItem {
	if client != nil {
		if items, ok := extractVocabularyLLM(ctx, client, sentences, n); ok {
			return items
		}
	}
	return extractVocabularyHeuristic(sentences, n)
}

func extractVocabularyLLM(ctx context.Context, client *llm.Client, sentences []string, n int) ([]VocabItem, bool) {
	if len(sentences) == 0 {
		return nil, false
	}
	prompt := "Transcript sentences:\n" + strings.Join(sentences, "\n") +
		"\n\nReturn a JSON array of up to " + strconv.Itoa(n) +
		` objects {"word": string, "definition": string} naming pedagogically valuable words or short phrases from the transcript.`
	text, variant, err := client.Complete(ctx, "You extract vocabulary for a language-learning exercise generator.", prompt)
	if err != nil || variant != llm.Available {
		return nil, false
	}

	var raw []struct {
		Word       string `json:"word"`
		Definition string `json:"definition"`
	}
	if err := json.Unmarshal([]byte(extractJSONArray(text)), &raw); err != nil {
		return nil, false
	}
	if len(raw) == 0 {
		return nil, false
	}

	items := make([]VocabItem, 0, len(raw))
	for _, r := range raw {
		w := strings.TrimSpace(r.Word)
		if w == "" {
			continue
		}
		items = append(items, VocabItem{Word: w, Definition: strings.TrimSpace(r.Definition), Source: SourceLLM})
		if len(items) >= n {
			break
		}
	}
	if len(items) == 0 {
		return nil, false
	}
	return items, true
}

func extractVocabularyHeuristic(sentences []string, n int) []VocabItem {
	freq := map[string]int{}
	for _, s := range sentences {
		for _, w := range tokenizeWords(s) {
			if len(w) < 3 {
				continue
			}
			if _, stop := stopwords[w]; stop {
				continue
			}
			freq[w]++
		}
	}

	type candidate struct {
		word  string
		count int
	}
	candidates := make([]candidate, 0, len(freq))
	for w, c := range freq {
		candidates = append(candidates, candidate{w, c})
	}
	// Mid-frequency bias (spec.md §4.4 stage 2): words appearing exactly
	// once are as uninformative as the very top outliers, so rank by
	// distance from the median count rather than raw frequency.
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].count < candidates[j].count })
	median := 1
	if len(candidates) > 0 {
		median = candidates[len(candidates)/2].count
	}
	sort.Slice(candidates, func(i, j int) bool {
		di := abs(candidates[i].count - median)
		dj := abs(candidates[j].count - median)
		if di != dj {
			return di < dj
		}
		return candidates[i].word < candidates[j].word
	})

	items := make([]VocabItem, 0, n)
	for _, c := range candidates {
		items = append(items, VocabItem{Word: c.word, Source: SourceHeuristic})
		if len(items) >= n {
			break
		}
	}
	return items
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// extractJSONArray trims leading/trailing prose an LLM sometimes wraps
// around the requested JSON array, returning the substring between the
// first '[' and the last ']'.
func extractJSONArray(text string) string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return "[]"
	}
	return text[start : end+1]
}
