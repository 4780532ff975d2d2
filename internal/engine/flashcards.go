package engine

import (
	"context"
	"strings"

	"github.com/yungbote/lesson-pipeline/internal/translate"
)

// BuildFlashcards implements spec.md §4.4 stage 6's flashcard construction
// plus stage 5's per-candidate translation, grounded on generators.py's
// generate_flashcards (skips phrases over five words, looks up an example
// sentence containing the term, assigns difficulty by word length).
func BuildFlashcards(ctx context.Context, vocab []VocabItem, sentences []string, translator *translate.Client, window TargetWindow) []Flashcard {
	out := make([]Flashcard, 0, window.Max)
	for _, v := range vocab {
		if len(strings.Fields(v.Word)) > 5 {
			continue
		}
		example := findExampleSentence(v.Word, sentences)
		card := Flashcard{
			Word:            v.Word,
			ExampleSentence: example,
			Difficulty:      difficultyByLength(v.Word),
			Source:          v.Source,
		}
		if translator != nil {
			card.Translation = translator.Translate(ctx, v.Word)
		}
		out = append(out, card)
		if len(out) >= window.Max {
			break
		}
	}
	return out
}

func findExampleSentence(word string, sentences []string) string {
	lower := strings.ToLower(word)
	for _, s := range sentences {
		if strings.Contains(strings.ToLower(s), lower) {
			return s
		}
	}
	if len(sentences) > 0 {
		return sentences[0]
	}
	return ""
}

func difficultyByLength(word string) string {
	switch {
	case len(word) <= 4:
		return "easy"
	case len(word) <= 8:
		return "medium"
	default:
		return "hard"
	}
}
