package engine

import (
	"math/rand"
	"strings"
)

var prepositions = []string{"in", "on", "at", "by", "with", "about", "against", "between", "into", "through", "during", "before", "after", "above", "below", "to", "from", "up", "down", "of"}

// BuildCloze implements spec.md §4.4 stage 6's cloze construction, grounded
// on generators.py's generate_cloze: pick a sentence containing a vocabulary
// term or mistake correction, blank exactly one token, and build a 4-option
// list seeded first from the student's incorrect form, then from lexical
// neighbors among the chosen sentence's own words.
func BuildCloze(rng *rand.Rand, sentences []string, vocab []VocabItem, mistakes []Mistake, window TargetWindow) []ClozeItem {
	out := make([]ClozeItem, 0, window.Max)

	for _, m := range mistakes {
		if len(out) >= window.Max {
			break
		}
		sentence := findExampleSentence(m.Correct, sentences)
		if sentence == "" {
			continue
		}
		item, ok := buildClozeItem(rng, sentence, m.Correct, []string{m.Incorrect}, m.Type)
		if ok {
			out = append(out, item)
		}
	}

	for _, v := range vocab {
		if len(out) >= window.Max {
			break
		}
		sentence := findExampleSentence(v.Word, sentences)
		if sentence == "" {
			continue
		}
		item, ok := buildClozeItem(rng, sentence, v.Word, nil, "vocabulary")
		if ok {
			out = append(out, item)
		}
	}
	return out
}

func buildClozeItem(rng *rand.Rand, sentence, answer string, incorrectForms []string, mistakeType string) (ClozeItem, bool) {
	answer = strings.ToLower(answer)
	words := tokenizeWords(sentence)
	found := false
	for _, w := range words {
		if w == answer {
			found = true
			break
		}
	}
	if !found {
		return ClozeItem{}, false
	}

	blanked := replaceFirstWord(sentence, answer, "_____")
	options := distractors(answer, mistakeType, incorrectForms, words, rng)
	if len(options) < 3 {
		return ClozeItem{}, false
	}
	options = append(options, answer)
	options = dedupeStrings(options)
	if len(options) > 4 {
		options = options[:4]
	}
	if len(options) < 4 {
		return ClozeItem{}, false
	}
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	return ClozeItem{
		Sentence:    blanked,
		Answer:      answer,
		Options:     options,
		Explanation: explanationFor(mistakeType, answer),
		Source:      SourceHeuristic,
	}, true
}

// distractors implements generators.py's _distractors: type-specific
// candidate generation biased toward the student's own incorrect form.
func distractors(word, mistakeType string, incorrectForms, sentenceWords []string, rng *rand.Rand) []string {
	var out []string
	for _, f := range incorrectForms {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" && f != word {
			out = append(out, f)
		}
	}

	switch mistakeType {
	case "grammar":
		out = append(out, word+"ing", word+"ed", word+"s")
	case "vocabulary":
		out = append(out, wordNeighbors(word, sentenceWords)...)
	default:
		if isPreposition(word) {
			for _, p := range prepositions {
				if p != word {
					out = append(out, p)
				}
			}
		} else {
			out = append(out, wordNeighbors(word, sentenceWords)...)
		}
	}

	out = dedupeStrings(out)
	filtered := out[:0]
	for _, o := range out {
		if o != word && len(o) > 0 {
			filtered = append(filtered, o)
		}
	}
	rng.Shuffle(len(filtered), func(i, j int) { filtered[i], filtered[j] = filtered[j], filtered[i] })
	if len(filtered) > 3 {
		filtered = filtered[:3]
	}
	return filtered
}

func wordNeighbors(word string, pool []string) []string {
	var out []string
	for _, w := range pool {
		if w == word {
			continue
		}
		if len(w) >= len(word)-2 && len(w) <= len(word)+2 {
			out = append(out, w)
		}
	}
	return out
}

func isPreposition(word string) bool {
	for _, p := range prepositions {
		if p == word {
			return true
		}
	}
	return false
}

// replaceFirstWord blanks the first field case-insensitively matching target
// once its trailing punctuation is stripped, preserving that trailing
// punctuation on the replacement so the blanked sentence still reads
// naturally (spec.md §4.4 stage 7: "cloze blanks match exactly one token").
func replaceFirstWord(sentence, target, replacement string) string {
	fields := strings.Fields(sentence)
	for i, f := range fields {
		trimmed := strings.TrimRight(f, ".,!?;:")
		bare := strings.ToLower(trimmed)
		if bare == target {
			fields[i] = replacement + f[len(trimmed):]
			break
		}
	}
	return strings.Join(fields, " ")
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func explanationFor(mistakeType, answer string) string {
	switch mistakeType {
	case "grammar":
		return "Check the verb form: \"" + answer + "\" fits the sentence's tense and subject."
	case "spelling":
		return "\"" + answer + "\" is the correct spelling."
	default:
		return "\"" + answer + "\" is the word that fits this context."
	}
}
