package problem

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	apperr "coderace/pkg/errors"
)

func writeBank(t *testing.T, problems []Problem) string {
	t.Helper()
	dir := t.TempDir()

	index := make([]Meta, 0, len(problems))
	for _, p := range problems {
		index = append(index, Meta{ID: p.ID, Title: p.Title, Difficulty: p.Difficulty, Tags: p.Tags})
		data, err := json.Marshal(p)
		if err != nil {
			t.Fatalf("marshal problem: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, p.ID+".json"), data, 0644); err != nil {
			t.Fatalf("write problem: %v", err)
		}
	}
	data, err := json.Marshal(index)
	if err != nil {
		t.Fatalf("marshal index: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.json"), data, 0644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	return dir
}

func bankProblem(id, difficulty string, tags ...string) Problem {
	return Problem{
		ID:          id,
		Title:       "Problem " + id,
		Difficulty:  difficulty,
		Description: "Return the answer.",
		EntryPoint:  "solve",
		TestCases:   []string{"assert candidate(1) == 1"},
		Tags:        tags,
	}
}

func TestPickFiltersDifficulty(t *testing.T) {
	dir := writeBank(t, []Problem{
		bankProblem("easy-one", "easy"),
		bankProblem("hard-one", "hard"),
	})
	src := NewFileSource(dir, nil)

	for i := 0; i < 5; i++ {
		p, err := src.Pick("hard", nil)
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		if p.ID != "hard-one" {
			t.Fatalf("picked %s for hard filter", p.ID)
		}
	}

	// Empty filter matches everything.
	if _, err := src.Pick("", nil); err != nil {
		t.Fatalf("unfiltered pick: %v", err)
	}
}

func TestPickHonorsExclusions(t *testing.T) {
	dir := writeBank(t, []Problem{
		bankProblem("a", "easy"),
		bankProblem("b", "easy"),
	})
	src := NewFileSource(dir, nil)

	p, err := src.Pick("easy", map[string]bool{"a": true})
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if p.ID != "b" {
		t.Fatalf("picked excluded problem %s", p.ID)
	}

	if _, err := src.Pick("easy", map[string]bool{"a": true, "b": true}); !apperr.Is(err, apperr.ProblemBankEmpty) {
		t.Fatalf("exhausted bank error = %v", err)
	}
}

func TestPickSkipsExcludedTags(t *testing.T) {
	dir := writeBank(t, []Problem{
		bankProblem("tree-prob", "easy", "Tree"),
		bankProblem("array-prob", "easy", "Array"),
	})
	src := NewFileSource(dir, []string{"Tree"})

	for i := 0; i < 5; i++ {
		p, err := src.Pick("", nil)
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		if p.ID == "tree-prob" {
			t.Fatal("picked a tag-excluded problem")
		}
	}

	// The index itself still lists everything.
	metas, err := src.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("index size = %d", len(metas))
	}
}

func TestMissingIndex(t *testing.T) {
	src := NewFileSource(t.TempDir(), nil)
	if _, err := src.List(); !apperr.Is(err, apperr.ProblemIndexMissing) {
		t.Fatalf("missing index error = %v", err)
	}
}

func TestLoadValidatesProblem(t *testing.T) {
	broken := bankProblem("broken", "easy")
	broken.TestCases = nil
	dir := writeBank(t, []Problem{broken})
	src := NewFileSource(dir, nil)

	if _, err := src.Pick("", nil); !apperr.Is(err, apperr.ProblemLoadFailed) {
		t.Fatalf("invalid problem error = %v", err)
	}
}

func TestIndexEntryWithoutFile(t *testing.T) {
	dir := writeBank(t, []Problem{bankProblem("real", "easy")})
	// Add a dangling index entry.
	index := []Meta{{ID: "ghost", Title: "Ghost", Difficulty: "easy"}}
	data, _ := json.Marshal(index)
	if err := os.WriteFile(filepath.Join(dir, "index.json"), data, 0644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	src := NewFileSource(dir, nil)

	if _, err := src.Pick("", nil); !apperr.Is(err, apperr.ProblemNotFound) {
		t.Fatalf("dangling entry error = %v", err)
	}
}

func TestAnyOrder(t *testing.T) {
	p := &Problem{Description: "Return the k most frequent elements in any order."}
	if !p.AnyOrder() {
		t.Fatal("any-order description not detected")
	}
	p = &Problem{Description: "Return the indices."}
	if p.AnyOrder() {
		t.Fatal("ordered description misdetected")
	}
}
