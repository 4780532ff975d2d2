package engine

// Score implements spec.md §4.4 stage 8 and SPEC_FULL.md Open Question
// decision #3: a weighted sum over four signals, each capped as documented
// there (40 + 25 + 20 + 15 = 100).
func Score(doc Document, hasMistakeDerivedItem bool, sanitizerDropped int) int {
	score := 0
	score += countWindowScore(doc.Counts.Flashcards, DefaultConfig().FlashcardsWindow)
	score += countWindowScore(doc.Counts.Cloze, DefaultConfig().ClozeWindow)
	score += countWindowScore(doc.Counts.Grammar, DefaultConfig().GrammarWindow)
	score += countWindowScore(doc.Counts.Sentence, DefaultConfig().SentenceWindow)

	if doc.Counts.Flashcards > 0 {
		translated := 0
		for _, f := range doc.Flashcards {
			if f.Translation != "" {
				translated++
			}
		}
		score += int(25 * float64(translated) / float64(doc.Counts.Flashcards))
	}

	if hasMistakeDerivedItem {
		score += 20
	}

	if sanitizerDropped == 0 {
		score += 15
	}

	if score > 100 {
		score = 100
	}
	return score
}

// countWindowScore awards up to 10 points per exercise type (40 total
// across the four types) scaled by how close count is to the target window.
func countWindowScore(count int, window TargetWindow) int {
	if count >= window.Min && count <= window.Max {
		return 10
	}
	if count == 0 {
		return 0
	}
	if count < window.Min {
		return int(10 * float64(count) / float64(window.Min))
	}
	// Above the window: still useful, just over-generated.
	return 7
}
