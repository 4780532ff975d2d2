// Package engine implements the Exercise Engine of spec.md §4.4: a
// deterministic transcript-to-exercises pipeline with an optional LLM-backed
// fast path for vocabulary and sentence selection, grounded throughout on
// original_source/src/ai/generators.py and orchestrator.py.
package engine

import (
	"time"
)

// Source tags whether an item came from the LLM path or the heuristic
// fallback (spec.md §4.4 output: "source flags for each exercise type").
type Source string

const (
	SourceLLM       Source = "llm"
	SourceHeuristic Source = "heuristic"
)

// VocabItem is one pedagogically valuable word or phrase extracted from the
// transcript (spec.md §4.4 stage 2).
type VocabItem struct {
	Word       string
	Definition string
	Source     Source
}

// Mistake is a teacher-correction pair parsed out of the transcript (spec.md
// §4.4 stage 4), grounded on generators.py's _diff_word/_distractors inputs.
type Mistake struct {
	Incorrect string
	Correct   string
	Type      string // grammar | vocabulary | spelling | unknown
	Rule      string
}

// Flashcard is spec.md §4.4 stage 6's {word, translation?, example_sentence,
// category?, difficulty}.
type Flashcard struct {
	Word            string `json:"word"`
	Translation     string `json:"translation,omitempty"`
	ExampleSentence string `json:"example_sentence"`
	Category        string `json:"category,omitempty"`
	Difficulty      string `json:"difficulty"`
	Source          Source `json:"source"`
}

// ClozeItem is spec.md §4.4 stage 6's cloze shape.
type ClozeItem struct {
	Sentence    string   `json:"sentence"`
	Answer      string   `json:"answer"`
	Options     []string `json:"options"`
	Explanation string   `json:"explanation"`
	Source      Source   `json:"source"`
}

// GrammarQuestion is spec.md §4.4 stage 6's MCQ shape.
type GrammarQuestion struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
	Source       Source   `json:"source"`
}

// SentenceItem is spec.md §4.4 stage 6's sentence-builder shape.
type SentenceItem struct {
	EnglishSentence string   `json:"english_sentence"`
	SentenceTokens  []string `json:"sentence_tokens"`
	Distractors     []string `json:"distractors,omitempty"`
	Translation     string   `json:"translation,omitempty"`
	Difficulty      string   `json:"difficulty"`
	Source          Source   `json:"source"`
}

// Counts reports the per-type item counts of the generated set.
type Counts struct {
	Flashcards int `json:"flashcards"`
	Cloze      int `json:"cloze"`
	Grammar    int `json:"grammar"`
	Sentence   int `json:"sentence"`
}

// Metadata is spec.md §4.4's metadata sub-document.
type Metadata struct {
	QualityPassed      bool              `json:"quality_passed"`
	QualityScore        int              `json:"quality_score"`
	VocabularyCount     int              `json:"vocabulary_count"`
	SentencesCount      int              `json:"sentences_count"`
	TranslationPresent  bool             `json:"translation_present"`
	Sources             map[string]Source `json:"sources"`
	TranscriptLength    int              `json:"transcript_length"`
	GeneratedAt         time.Time        `json:"generated_at"`
}

// Document is the complete exercises JSONB payload (spec.md §3).
type Document struct {
	Flashcards []Flashcard       `json:"flashcards"`
	Cloze      []ClozeItem       `json:"cloze"`
	Grammar    []GrammarQuestion `json:"grammar"`
	Sentence   []SentenceItem    `json:"sentence"`
	Counts     Counts            `json:"counts"`
	Metadata   Metadata          `json:"metadata"`
}

// TargetWindow is an inclusive [min, max] count target for one exercise
// type (spec.md §4.4: "flashcards 8-15, cloze 6-10, grammar 6-10, sentence
// 6-10").
type TargetWindow struct {
	Min, Max int
}

// Config carries the per-call tunables spec.md §4.4 names as engine
// configuration.
type Config struct {
	FlashcardsWindow TargetWindow
	ClozeWindow      TargetWindow
	GrammarWindow    TargetWindow
	SentenceWindow   TargetWindow

	NVocab int // default 15
	NSent  int // default 10

	MinSentenceChars int // default 12
	MaxSentenceChars int // default 280

	HardFloor  int // default 3
	QualityMin int // default 60
}

// DefaultConfig matches the defaults named throughout spec.md §4.4.
func DefaultConfig() Config {
	return Config{
		FlashcardsWindow: TargetWindow{Min: 8, Max: 15},
		ClozeWindow:      TargetWindow{Min: 6, Max: 10},
		GrammarWindow:    TargetWindow{Min: 6, Max: 10},
		SentenceWindow:   TargetWindow{Min: 6, Max: 10},
		NVocab:           15,
		NSent:            10,
		MinSentenceChars: 12,
		MaxSentenceChars: 280,
		HardFloor:        3,
		QualityMin:       60,
	}
}

// Context is the per-transcript metadata the caller supplies alongside the
// raw transcript text (spec.md §4.4 "Inputs").
type Context struct {
	UserID      string
	TeacherID   string
	ClassID     string
	MeetingDate string
	SummaryID   int64
}

