package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/yungbote/lesson-pipeline/internal/logger"
)

const sampleTranscript = `
Teacher: Today we will practice the past tense. I goed to the store yesterday. Correct: I went to the store yesterday.
Student: I understand the correction now.
Teacher: Good. She don't like apples. Should be she doesn't like apples.
Student: We are learning English every single day and it is improving quickly.
Teacher: The weather was very nice this morning so we walked to school together.
Student: They always arrive early because they enjoy the quiet classroom before everyone else comes in.
Teacher: He was reading a long book about history when the bell suddenly rang for lunch.
`

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return l
}

func TestEngine_Generate_IsDeterministic(t *testing.T) {
	eng := New(testLogger(t), nil, nil, DefaultConfig())
	tctx := Context{SummaryID: 42, ClassID: "c-1", UserID: "u-1", TeacherID: "t-1"}

	first, err := eng.Generate(context.Background(), sampleTranscript, tctx)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := eng.Generate(context.Background(), sampleTranscript, tctx)
	if err != nil {
		t.Fatalf("Generate (second run): %v", err)
	}

	if first.Counts != second.Counts {
		t.Fatalf("expected identical counts across runs with the same summary_id: first=%+v second=%+v", first.Counts, second.Counts)
	}
	if len(first.Cloze) != len(second.Cloze) {
		t.Fatalf("expected identical cloze length across runs")
	}
	for i := range first.Cloze {
		if first.Cloze[i].Sentence != second.Cloze[i].Sentence || first.Cloze[i].Answer != second.Cloze[i].Answer {
			t.Fatalf("cloze item %d differs across runs: %+v vs %+v", i, first.Cloze[i], second.Cloze[i])
		}
	}
}

func TestEngine_Generate_RejectsEmptyTranscript(t *testing.T) {
	eng := New(testLogger(t), nil, nil, DefaultConfig())
	_, err := eng.Generate(context.Background(), "", Context{SummaryID: 1})
	if err == nil {
		t.Fatalf("expected an error for an empty transcript")
	}
}

func TestEngine_Generate_ProducesHeuristicSourcedExercisesWithoutLLM(t *testing.T) {
	eng := New(testLogger(t), nil, nil, DefaultConfig())
	doc, err := eng.Generate(context.Background(), sampleTranscript, Context{SummaryID: 7})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if doc.Metadata.Sources["vocabulary"] != SourceHeuristic {
		t.Fatalf("expected heuristic vocabulary source without an LLM client, got %v", doc.Metadata.Sources["vocabulary"])
	}
	for _, f := range doc.Flashcards {
		if f.Source != SourceHeuristic {
			t.Fatalf("expected all flashcards heuristic-sourced, got %v for %q", f.Source, f.Word)
		}
	}
}

func TestEngine_Generate_ClozeOptionsAreSanitized(t *testing.T) {
	eng := New(testLogger(t), nil, nil, DefaultConfig())
	doc, err := eng.Generate(context.Background(), sampleTranscript, Context{SummaryID: 99})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, c := range doc.Cloze {
		if len(c.Options) != 4 {
			t.Fatalf("cloze %q: want 4 options, got %d", c.Sentence, len(c.Options))
		}
		if !containsFold(c.Options, c.Answer) {
			t.Fatalf("cloze %q: options %v do not contain the answer %q", c.Sentence, c.Options, c.Answer)
		}
		if hasDuplicateFold(c.Options) {
			t.Fatalf("cloze %q: duplicate options %v", c.Sentence, c.Options)
		}
		if strings.Count(c.Sentence, "_____") != 1 {
			t.Fatalf("cloze %q: expected exactly one blank", c.Sentence)
		}
	}
	for _, g := range doc.Grammar {
		if g.CorrectIndex < 0 || g.CorrectIndex >= len(g.Options) {
			t.Fatalf("grammar %q: correct_index %d out of range for %d options", g.Prompt, g.CorrectIndex, len(g.Options))
		}
	}
}

func TestSanitize_DropsMalformedClozeItems(t *testing.T) {
	doc := Document{
		Cloze: []ClozeItem{
			{Sentence: "The cat sat on the _____.", Answer: "mat", Options: []string{"mat", "mat", "rug", "hat"}},
			{Sentence: "She _____ to the store.", Answer: "went", Options: []string{"went", "go", "going", "gone"}},
		},
	}
	out, dropped := Sanitize(doc)
	if dropped != 1 {
		t.Fatalf("want 1 dropped item, got %d", dropped)
	}
	if len(out.Cloze) != 1 || out.Cloze[0].Answer != "went" {
		t.Fatalf("expected only the valid cloze item to survive, got %+v", out.Cloze)
	}
}
