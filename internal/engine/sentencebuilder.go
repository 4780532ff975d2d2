package engine

import (
	"context"
	"math/rand"
	"regexp"
	"strings"

	"github.com/yungbote/lesson-pipeline/internal/translate"
)

var trailingPunctRe = regexp.MustCompile(`[.,!?;:]+$`)

var commonWords = []string{"the", "a", "quickly", "yesterday", "today", "carefully", "always", "never", "because", "although", "however", "therefore"}

// BuildSentenceItems implements spec.md §4.4 stage 6's sentence-builder
// construction, grounded on generators.py's generate_sentence_items:
// tokenize preserving trailing punctuation as its own final token, and draw
// distractors from a common-word pool that excludes tokens already in the
// sentence.
func BuildSentenceItems(ctx context.Context, rng *rand.Rand, sentences []string, translator *translate.Client, window TargetWindow) []SentenceItem {
	out := make([]SentenceItem, 0, window.Max)
	for _, s := range sentences {
		if len(out) >= window.Max {
			break
		}
		tokens := tokenizeSentenceTokens(s)
		if len(tokens) < 3 {
			continue
		}

		item := SentenceItem{
			EnglishSentence: s,
			SentenceTokens:  tokens,
			Distractors:     sentenceDistractors(rng, tokens),
			Difficulty:      difficultyByTokenCount(len(tokens)),
			Source:          SourceHeuristic,
		}
		if translator != nil {
			item.Translation = translator.Translate(ctx, s)
		}
		out = append(out, item)
	}
	return out
}

// tokenizeSentenceTokens splits on whitespace and peels a trailing
// punctuation run from the last token into its own token, matching
// generators.py's tokenization rule that "preserves punctuation as its own
// tokens when appropriate" for exactly the sentence-final mark.
func tokenizeSentenceTokens(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	last := fields[len(fields)-1]
	punct := trailingPunctRe.FindString(last)
	tokens := make([]string, 0, len(fields)+1)
	if punct != "" {
		fields[len(fields)-1] = strings.TrimSuffix(last, punct)
		tokens = append(tokens, fields...)
		if fields[len(fields)-1] == "" {
			tokens = tokens[:len(tokens)-1]
		}
		tokens = append(tokens, punct)
	} else {
		tokens = append(tokens, fields...)
	}
	return tokens
}

func sentenceDistractors(rng *rand.Rand, tokens []string) []string {
	present := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		present[strings.ToLower(t)] = struct{}{}
	}
	var candidates []string
	for _, w := range commonWords {
		if _, ok := present[w]; !ok {
			candidates = append(candidates, w)
		}
	}
	rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	if len(candidates) > 2 {
		candidates = candidates[:2]
	}
	return candidates
}

func difficultyByTokenCount(n int) string {
	switch {
	case n <= 6:
		return "easy"
	case n <= 10:
		return "medium"
	default:
		return "hard"
	}
}
