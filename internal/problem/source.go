// Package problem loads the on-disk problem bank and picks problems for
// rooms. The bank is a directory holding index.json plus one JSON file per
// problem.
package problem

import (
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperr "coderace/pkg/errors"
)

// Meta is one entry of index.json.
type Meta struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Difficulty string   `json:"difficulty"`
	Tags       []string `json:"tags,omitempty"`
}

// Problem is the full problem definition served to a room. Hidden test
// cases never leave the server.
type Problem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Difficulty  string   `json:"difficulty"`
	Description string   `json:"description"`
	EntryPoint  string   `json:"entry_point"`
	StarterCode string   `json:"starter_code"`
	Preamble    string   `json:"preamble,omitempty"`
	TestCases   []string `json:"test_cases"`
	Tags        []string `json:"tags,omitempty"`
}

// AnyOrder reports whether the answer may be compared order-insensitively.
func (p *Problem) AnyOrder() bool {
	return strings.Contains(strings.ToLower(p.Description), "any order")
}

// Source picks problems for rooms.
type Source interface {
	// Pick returns a random problem matching the difficulty filter (empty
	// matches all) whose id is not in exclude.
	Pick(difficulty string, exclude map[string]bool) (*Problem, error)
	// List returns the problem index.
	List() ([]Meta, error)
}

// FileSource reads problems from a directory, caching the index after the
// first load.
type FileSource struct {
	dir         string
	excludeTags map[string]bool

	mu    sync.Mutex
	index []Meta
}

// NewFileSource creates a problem source over dir. Problems carrying any of
// excludeTags are never picked (they stay listed in the index).
func NewFileSource(dir string, excludeTags []string) *FileSource {
	tagSet := make(map[string]bool, len(excludeTags))
	for _, tag := range excludeTags {
		tagSet[tag] = true
	}
	return &FileSource{dir: dir, excludeTags: tagSet}
}

// List returns the cached problem index, loading it on first use.
func (s *FileSource) List() ([]Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadIndexLocked()
}

func (s *FileSource) loadIndexLocked() ([]Meta, error) {
	if s.index != nil {
		return s.index, nil
	}
	data, err := os.ReadFile(filepath.Join(s.dir, "index.json"))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ProblemIndexMissing)
	}
	var index []Meta
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, apperr.Wrapf(err, apperr.ProblemLoadFailed, "parse problem index failed")
	}
	s.index = index
	return index, nil
}

// Pick returns a random eligible problem.
func (s *FileSource) Pick(difficulty string, exclude map[string]bool) (*Problem, error) {
	index, err := s.List()
	if err != nil {
		return nil, err
	}

	candidates := make([]Meta, 0, len(index))
	for _, meta := range index {
		if s.tagExcluded(meta.Tags) {
			continue
		}
		if difficulty != "" && !strings.EqualFold(meta.Difficulty, difficulty) {
			continue
		}
		if exclude[meta.ID] {
			continue
		}
		candidates = append(candidates, meta)
	}
	if len(candidates) == 0 {
		return nil, apperr.New(apperr.ProblemBankEmpty)
	}

	choice := candidates[rand.Intn(len(candidates))]
	return s.load(choice.ID)
}

func (s *FileSource) load(id string) (*Problem, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.ProblemNotFound, "problem %s not found", id)
	}
	var p Problem
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, apperr.Wrapf(err, apperr.ProblemLoadFailed, "parse problem %s failed", id)
	}
	if p.ID == "" {
		return nil, apperr.Newf(apperr.ProblemLoadFailed, "problem %s has no id", id)
	}
	if len(p.TestCases) == 0 {
		return nil, apperr.Newf(apperr.ProblemLoadFailed, "problem %s has no test cases", p.ID)
	}
	return &p, nil
}

func (s *FileSource) tagExcluded(tags []string) bool {
	for _, tag := range tags {
		if s.excludeTags[tag] {
			return true
		}
	}
	return false
}
