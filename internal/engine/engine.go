package engine

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/yungbote/lesson-pipeline/internal/apperr"
	"github.com/yungbote/lesson-pipeline/internal/llm"
	"github.com/yungbote/lesson-pipeline/internal/logger"
	"github.com/yungbote/lesson-pipeline/internal/translate"
)

// MinTranscriptChars is spec.md §4.3's floor below which a transcript is
// treated as missing.
const MinTranscriptChars = 100

// Engine converts a transcript into an ExerciseSet document (spec.md §4.4).
type Engine struct {
	log        *logger.Logger
	llmClient  *llm.Client
	translator *translate.Client
	cfg        Config
}

func New(log *logger.Logger, llmClient *llm.Client, translator *translate.Client, cfg Config) *Engine {
	return &Engine{
		log:        log.With("component", "ExerciseEngine"),
		llmClient:  llmClient,
		translator: translator,
		cfg:        cfg,
	}
}

// Generate runs the full pipeline of spec.md §4.4 stages 1-8. It returns
// apperr.ErrDataInvalid when normalization leaves no usable sentence (for
// example an empty transcript); the caller (internal/transcript) also runs
// the stage-0 short-transcript check of spec.md §4.3 before calling Generate.
func (e *Engine) Generate(ctx context.Context, transcript string, tctx Context) (Document, error) {
	rng := rand.New(rand.NewSource(tctx.SummaryID))

	sentences := Normalize(transcript, e.cfg.MinSentenceChars, e.cfg.MaxSentenceChars)
	if len(sentences) == 0 {
		return Document{}, apperr.ErrDataInvalid
	}

	vocab := ExtractVocabulary(ctx, e.llmClient, sentences, e.cfg.NVocab)
	teachable, sentenceSource := ExtractSentences(ctx, e.llmClient, sentences, vocab, e.cfg.NSent)
	if len(teachable) == 0 {
		teachable = sentences
	}
	mistakes := ExtractMistakes(sentences)

	doc := Document{
		Flashcards: BuildFlashcards(ctx, vocab, teachable, e.translator, e.cfg.FlashcardsWindow),
		Cloze:      BuildCloze(rng, teachable, vocab, mistakes, e.cfg.ClozeWindow),
		Grammar:    BuildGrammar(rng, teachable, mistakes, vocab, e.cfg.GrammarWindow),
		Sentence:   BuildSentenceItems(ctx, rng, teachable, e.translator, e.cfg.SentenceWindow),
	}

	doc, dropped := Sanitize(doc)
	doc = e.secondPassIfBelowFloor(ctx, rng, doc, sentences, vocab, teachable, mistakes)

	doc.Counts = Counts{
		Flashcards: len(doc.Flashcards),
		Cloze:      len(doc.Cloze),
		Grammar:    len(doc.Grammar),
		Sentence:   len(doc.Sentence),
	}

	hasMistakeDerived := false
	for _, m := range mistakes {
		for _, c := range doc.Cloze {
			hasMistakeDerived = hasMistakeDerived || strings.EqualFold(c.Answer, m.Correct)
		}
		for _, g := range doc.Grammar {
			hasMistakeDerived = hasMistakeDerived || strings.EqualFold(g.Options[g.CorrectIndex], m.Correct)
		}
	}

	translationPresent := false
	for _, f := range doc.Flashcards {
		if f.Translation != "" {
			translationPresent = true
			break
		}
	}

	score := Score(doc, hasMistakeDerived, dropped)
	doc.Metadata = Metadata{
		QualityPassed:      score >= e.cfg.QualityMin,
		QualityScore:       score,
		VocabularyCount:    len(vocab),
		SentencesCount:     len(teachable),
		TranslationPresent: translationPresent,
		Sources: map[string]Source{
			"vocabulary": vocabSourceSummary(vocab),
			"sentences":  sentenceSource,
			"flashcards": sourceSummary(flashcardSources(doc.Flashcards)),
			"cloze":      sourceSummary(clozeSources(doc.Cloze)),
			"grammar":    sourceSummary(grammarSources(doc.Grammar)),
			"sentence":   sourceSummary(sentenceItemSources(doc.Sentence)),
		},
		TranscriptLength: len(transcript),
		GeneratedAt:      time.Now().UTC(),
	}

	e.log.Debug("generated exercise set", "summary_id", tctx.SummaryID, "quality_score", score, "quality_passed", doc.Metadata.QualityPassed)

	return doc, nil
}

// secondPassIfBelowFloor implements spec.md §4.4 stage 8's "if a type's
// count is below a hard floor, the engine attempts a second pass with
// relaxed heuristics before emitting": it retries heuristic construction
// with the full (unfiltered) sentence pool instead of only the teachable
// subset, which tends to recover additional candidates at the cost of
// precision.
func (e *Engine) secondPassIfBelowFloor(ctx context.Context, rng *rand.Rand, doc Document, allSentences []string, vocab []VocabItem, teachable []string, mistakes []Mistake) Document {
	if len(doc.Flashcards) < e.cfg.HardFloor {
		extra := BuildFlashcards(ctx, vocab, allSentences, e.translator, e.cfg.FlashcardsWindow)
		doc.Flashcards = mergeFlashcards(doc.Flashcards, extra, e.cfg.FlashcardsWindow.Max)
	}
	if len(doc.Cloze) < e.cfg.HardFloor {
		extra := BuildCloze(rng, allSentences, vocab, mistakes, e.cfg.ClozeWindow)
		doc.Cloze = mergeCloze(doc.Cloze, extra, e.cfg.ClozeWindow.Max)
	}
	if len(doc.Grammar) < e.cfg.HardFloor {
		extra := BuildGrammar(rng, allSentences, mistakes, vocab, e.cfg.GrammarWindow)
		doc.Grammar = mergeGrammar(doc.Grammar, extra, e.cfg.GrammarWindow.Max)
	}
	if len(doc.Sentence) < e.cfg.HardFloor {
		extra := BuildSentenceItems(ctx, rng, allSentences, e.translator, e.cfg.SentenceWindow)
		doc.Sentence = mergeSentenceItems(doc.Sentence, extra, e.cfg.SentenceWindow.Max)
	}
	doc, _ = Sanitize(doc)
	return doc
}

func mergeFlashcards(base, extra []Flashcard, max int) []Flashcard {
	seen := make(map[string]struct{}, len(base))
	for _, f := range base {
		seen[f.Word] = struct{}{}
	}
	for _, f := range extra {
		if len(base) >= max {
			break
		}
		if _, ok := seen[f.Word]; ok {
			continue
		}
		seen[f.Word] = struct{}{}
		base = append(base, f)
	}
	return base
}

func mergeCloze(base, extra []ClozeItem, max int) []ClozeItem {
	seen := make(map[string]struct{}, len(base))
	for _, c := range base {
		seen[c.Sentence] = struct{}{}
	}
	for _, c := range extra {
		if len(base) >= max {
			break
		}
		if _, ok := seen[c.Sentence]; ok {
			continue
		}
		seen[c.Sentence] = struct{}{}
		base = append(base, c)
	}
	return base
}

func mergeGrammar(base, extra []GrammarQuestion, max int) []GrammarQuestion {
	seen := make(map[string]struct{}, len(base))
	for _, g := range base {
		seen[g.Prompt] = struct{}{}
	}
	for _, g := range extra {
		if len(base) >= max {
			break
		}
		if _, ok := seen[g.Prompt]; ok {
			continue
		}
		seen[g.Prompt] = struct{}{}
		base = append(base, g)
	}
	return base
}

func mergeSentenceItems(base, extra []SentenceItem, max int) []SentenceItem {
	seen := make(map[string]struct{}, len(base))
	for _, s := range base {
		seen[s.EnglishSentence] = struct{}{}
	}
	for _, s := range extra {
		if len(base) >= max {
			break
		}
		if _, ok := seen[s.EnglishSentence]; ok {
			continue
		}
		seen[s.EnglishSentence] = struct{}{}
		base = append(base, s)
	}
	return base
}

func vocabSourceSummary(vocab []VocabItem) Source {
	for _, v := range vocab {
		if v.Source == SourceLLM {
			return SourceLLM
		}
	}
	return SourceHeuristic
}

func flashcardSources(in []Flashcard) []Source {
	out := make([]Source, len(in))
	for i, f := range in {
		out[i] = f.Source
	}
	return out
}

func clozeSources(in []ClozeItem) []Source {
	out := make([]Source, len(in))
	for i, c := range in {
		out[i] = c.Source
	}
	return out
}

func grammarSources(in []GrammarQuestion) []Source {
	out := make([]Source, len(in))
	for i, g := range in {
		out[i] = g.Source
	}
	return out
}

func sentenceItemSources(in []SentenceItem) []Source {
	out := make([]Source, len(in))
	for i, s := range in {
		out[i] = s.Source
	}
	return out
}

func sourceSummary(sources []Source) Source {
	for _, s := range sources {
		if s == SourceLLM {
			return SourceLLM
		}
	}
	return SourceHeuristic
}
