// Package complexity reads task complexity reports produced by the analyzer.
package complexity

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/tidwall/gjson"
)

// DefaultReport is the report file name relative to the project root.
const DefaultReport = ".taskmaster/reports/task-complexity-report.json"

// Scores maps a top-level task id to its complexity score.
type Scores map[int]float64

// Load reads a report file. A missing file is not an error and yields empty scores.
func Load(path string) (Scores, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Scores{}, nil
		}
		return nil, fmt.Errorf("reading complexity report: %w", err)
	}
	return Parse(data)
}

// Parse extracts scores from report JSON. Entries without a usable task id
// or score are skipped.
func Parse(data []byte) (Scores, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parsing complexity report: invalid JSON")
	}

	scores := Scores{}
	gjson.GetBytes(data, "complexityAnalysis").ForEach(func(_, entry gjson.Result) bool {
		id, ok := taskID(entry.Get("taskId"))
		if !ok {
			return true
		}
		score := entry.Get("complexityScore")
		if score.Type != gjson.Number {
			return true
		}
		scores[id] = score.Float()
		return true
	})
	return scores, nil
}

// Get returns the score for id and whether the report covers it.
func (s Scores) Get(id int) (float64, bool) {
	score, ok := s[id]
	return score, ok
}

func taskID(r gjson.Result) (int, bool) {
	switch r.Type {
	case gjson.Number:
		f := r.Float()
		if f != float64(int(f)) {
			return 0, false
		}
		return int(f), true
	case gjson.String:
		n, err := strconv.Atoi(r.Str)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
