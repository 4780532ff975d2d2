package engine

import (
	"math/rand"
	"strings"
)

// BuildGrammar implements spec.md §4.4 stage 6's grammar MCQ: where a
// mistake pair is available the prompt is seeded from it so CorrectIndex
// matches the corrected form and one option is the student's own incorrect
// form; otherwise a vocabulary-seeded fill-in-the-blank prompt is built,
// grounded on generators.py's generate_grammar.
func BuildGrammar(rng *rand.Rand, sentences []string, mistakes []Mistake, vocab []VocabItem, window TargetWindow) []GrammarQuestion {
	out := make([]GrammarQuestion, 0, window.Max)

	for _, m := range mistakes {
		if len(out) >= window.Max {
			break
		}
		sentence := findExampleSentence(m.Correct, sentences)
		if sentence == "" {
			continue
		}
		blanked := replaceFirstWord(sentence, strings.ToLower(m.Correct), "_____")
		if blanked == sentence {
			continue
		}
		options := []string{m.Correct, m.Incorrect}
		options = append(options, grammarDistractorFillers(m.Correct)...)
		options = dedupeStrings(options)
		if len(options) > 4 {
			options = options[:4]
		}
		if len(options) < 4 {
			continue
		}
		rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
		correctIdx := indexOfFold(options, m.Correct)
		if correctIdx < 0 {
			continue
		}
		out = append(out, GrammarQuestion{
			Prompt:       blanked,
			Options:      options,
			CorrectIndex: correctIdx,
			Explanation:  explanationFor(m.Type, m.Correct),
			Source:       SourceHeuristic,
		})
	}

	for _, v := range vocab {
		if len(out) >= window.Max {
			break
		}
		sentence := findExampleSentence(v.Word, sentences)
		if sentence == "" {
			continue
		}
		blanked := replaceFirstWord(sentence, v.Word, "_____")
		if blanked == sentence {
			continue
		}
		words := tokenizeWords(sentence)
		options := append([]string{v.Word}, wordNeighbors(v.Word, words)...)
		options = dedupeStrings(options)
		if len(options) > 4 {
			options = options[:4]
		}
		if len(options) < 4 {
			continue
		}
		rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
		correctIdx := indexOfFold(options, v.Word)
		if correctIdx < 0 {
			continue
		}
		out = append(out, GrammarQuestion{
			Prompt:       blanked,
			Options:      options,
			CorrectIndex: correctIdx,
			Explanation:  "\"" + v.Word + "\" is the word that fits this context.",
			Source:       SourceHeuristic,
		})
	}
	return out
}

func grammarDistractorFillers(word string) []string {
	return []string{word + "ed", word + "ing", word + "s"}
}

func indexOfFold(options []string, target string) int {
	for i, o := range options {
		if strings.EqualFold(o, target) {
			return i
		}
	}
	return -1
}
