// Package taskfile loads and saves the tasks.json document.
//
// The document is keyed by tag:
//
//	{"master": {"tasks": [...], "metadata": {...}}, "feature-x": {...}}
//
// The older single-list layout {"tasks": [...]} is read as the "master" tag
// and written back in the tagged layout.
package taskfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/zp-innovation/mcp-task-master-sub005/internal/tasks"
)

// DefaultTag is used when no tag is given.
const DefaultTag = "master"

// DefaultPath is the tasks file location relative to the project root.
const DefaultPath = ".taskmaster/tasks/tasks.json"

// File is one tag of a loaded tasks document.
type File struct {
	Path     string
	Tag      string
	Tasks    []tasks.Task
	Metadata json.RawMessage

	// Legacy reports whether the document was read in the single-list layout.
	Legacy bool

	// other tags, kept verbatim
	others map[string]json.RawMessage
}

type tagged struct {
	Tasks    []tasks.Task    `json:"tasks"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// New returns an empty File for path and tag that has not been read from disk.
func New(path, tag string) *File {
	if tag == "" {
		tag = DefaultTag
	}
	return &File{Path: path, Tag: tag, Tasks: []tasks.Task{}, others: map[string]json.RawMessage{}}
}

// Load reads tag from the document at path. A tag the document does not
// contain yields an empty task list, which Save will add.
func Load(path, tag string) (*File, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading tasks file: %w", err)
	}
	fl := NewFileLock(path)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	return read(path, tag)
}

// Save writes the document atomically while holding the file lock.
func (f *File) Save() error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("creating tasks directory: %w", err)
	}
	fl := NewFileLock(f.Path)
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	return f.write()
}

// Tags lists every tag in the document, including f.Tag, sorted.
func (f *File) Tags() []string {
	out := []string{f.Tag}
	for tag := range f.others {
		out = append(out, tag)
	}
	slices.Sort(out)
	return out
}

// Update runs a read-modify-write cycle on tag under a single lock. The
// document is written only when fn reports a change.
func Update(path, tag string, fn func([]tasks.Task) (bool, error)) (*File, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading tasks file: %w", err)
	}
	fl := NewFileLock(path)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	f, err := read(path, tag)
	if err != nil {
		return nil, err
	}

	changed, err := fn(f.Tasks)
	if err != nil {
		return f, err
	}
	if !changed {
		return f, nil
	}
	if err := f.write(); err != nil {
		return f, err
	}
	return f, nil
}

// Writer persists a repaired collection back into its File.
type Writer struct {
	File *File
}

// Persist replaces the File's tasks and saves the document.
func (w Writer) Persist(ts []tasks.Task) error {
	w.File.Tasks = ts
	return w.File.Save()
}

func read(path, tag string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tasks file: %w", err)
	}
	return decode(path, tag, data)
}

func decode(path, tag string, data []byte) (*File, error) {
	f := New(path, tag)

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing tasks file: %w", err)
	}

	if raw, ok := doc["tasks"]; ok && isArray(raw) {
		f.Legacy = true
		if err := json.Unmarshal(raw, &f.Tasks); err != nil {
			return nil, fmt.Errorf("parsing tasks: %w", err)
		}
		f.Metadata = doc["metadata"]
		if f.Tag != DefaultTag {
			// Legacy documents have only the master list; the requested tag is new.
			legacy, err := json.Marshal(tagged{Tasks: f.Tasks, Metadata: f.Metadata})
			if err != nil {
				return nil, fmt.Errorf("encoding legacy tasks: %w", err)
			}
			f.others[DefaultTag] = legacy
			f.Tasks = []tasks.Task{}
			f.Metadata = nil
		}
		if err := checkIDs(f); err != nil {
			return nil, err
		}
		return f, nil
	}

	for key, raw := range doc {
		if key != f.Tag {
			f.others[key] = raw
			continue
		}
		var t tagged
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("parsing tag %q: %w", key, err)
		}
		if t.Tasks != nil {
			f.Tasks = t.Tasks
		}
		f.Metadata = t.Metadata
	}
	if err := checkIDs(f); err != nil {
		return nil, err
	}
	return f, nil
}

// checkIDs rejects a tag whose task or subtask ids repeat.
func checkIDs(f *File) error {
	if err := tasks.CheckUnique(f.Tasks); err != nil {
		return fmt.Errorf("tag %q in %s: %w", f.Tag, f.Path, err)
	}
	return nil
}

func (f *File) encode() ([]byte, error) {
	doc := make(map[string]json.RawMessage, len(f.others)+1)
	for tag, raw := range f.others {
		doc[tag] = raw
	}

	list := f.Tasks
	if list == nil {
		list = []tasks.Task{}
	}
	raw, err := json.Marshal(tagged{Tasks: list, Metadata: f.Metadata})
	if err != nil {
		return nil, fmt.Errorf("encoding tag %q: %w", f.Tag, err)
	}
	doc[f.Tag] = raw

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tasks file: %w", err)
	}
	return append(data, '\n'), nil
}

func (f *File) write() error {
	data, err := f.encode()
	if err != nil {
		return err
	}

	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	f.Legacy = false
	return nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// Exists reports whether a tasks file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
