package engine

import "strings"

// Sanitize implements spec.md §4.4 stage 7: structural validators run over
// every generated item, dropping anything that fails rather than emitting a
// malformed item. Returns the filtered document and the number of items
// dropped, for the quality gate's typo-absence signal.
func Sanitize(doc Document) (Document, int) {
	dropped := 0

	flashcards := doc.Flashcards[:0]
	for _, f := range doc.Flashcards {
		if f.Word == "" || f.ExampleSentence == "" || hasDoublePunct(f.ExampleSentence) {
			dropped++
			continue
		}
		flashcards = append(flashcards, f)
	}

	cloze := doc.Cloze[:0]
	for _, c := range doc.Cloze {
		if !validCloze(c) {
			dropped++
			continue
		}
		cloze = append(cloze, c)
	}

	grammar := doc.Grammar[:0]
	for _, g := range doc.Grammar {
		if !validGrammar(g) {
			dropped++
			continue
		}
		grammar = append(grammar, g)
	}

	sentence := doc.Sentence[:0]
	for _, s := range doc.Sentence {
		if len(s.SentenceTokens) == 0 || hasDoublePunct(s.EnglishSentence) || strings.TrimSpace(s.EnglishSentence) != s.EnglishSentence {
			dropped++
			continue
		}
		sentence = append(sentence, s)
	}

	doc.Flashcards = flashcards
	doc.Cloze = cloze
	doc.Grammar = grammar
	doc.Sentence = sentence
	return doc, dropped
}

func validCloze(c ClozeItem) bool {
	if c.Sentence == "" || c.Answer == "" || len(c.Options) != 4 {
		return false
	}
	if !containsFold(c.Options, c.Answer) {
		return false
	}
	if hasDuplicateFold(c.Options) {
		return false
	}
	if hasDoublePunct(c.Sentence) {
		return false
	}
	return strings.Count(strings.ToLower(c.Sentence), "_____") == 1
}

func validGrammar(g GrammarQuestion) bool {
	if g.Prompt == "" || len(g.Options) != 4 {
		return false
	}
	if g.CorrectIndex < 0 || g.CorrectIndex >= len(g.Options) {
		return false
	}
	if hasDuplicateFold(g.Options) {
		return false
	}
	return !hasDoublePunct(g.Prompt)
}

func containsFold(options []string, target string) bool {
	return indexOfFold(options, target) >= 0
}

func hasDuplicateFold(options []string) bool {
	seen := make(map[string]struct{}, len(options))
	for _, o := range options {
		key := strings.ToLower(strings.TrimSpace(o))
		if _, ok := seen[key]; ok {
			return true
		}
		seen[key] = struct{}{}
	}
	return false
}

func hasDoublePunct(s string) bool {
	for i := 1; i < len(s); i++ {
		if isPunct(s[i]) && s[i] == s[i-1] {
			return true
		}
	}
	return strings.HasSuffix(s, " ") || strings.HasPrefix(s, " ")
}

func isPunct(b byte) bool {
	switch b {
	case '.', ',', '!', '?', ';', ':':
		return true
	default:
		return false
	}
}
