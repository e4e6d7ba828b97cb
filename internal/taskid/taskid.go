// Package taskid normalizes task and subtask identifiers.
//
// Task files carry identifiers as JSON numbers, numeric strings, or dotted
// "parent.sub" strings. Every other package compares identifiers through the
// ID type defined here, so 1 and "1" are the same task everywhere.
package taskid

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformed is the sentinel wrapped by every parse failure.
var ErrMalformed = errors.New("malformed identifier")

// MalformedError reports raw input that cannot be read as an identifier.
type MalformedError struct {
	Raw    string
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s %q", ErrMalformed, e.Raw)
	}
	return fmt.Sprintf("%s %q: %s", ErrMalformed, e.Raw, e.Reason)
}

func (e *MalformedError) Unwrap() error { return ErrMalformed }

func malformed(raw any, reason string) error {
	return &MalformedError{Raw: fmt.Sprint(raw), Reason: reason}
}

// ID identifies either a top-level task (plain) or a subtask of a task
// (composite). The zero value is the plain identifier 0.
//
// ID is comparable and safe to use as a map key.
type ID struct {
	task      int
	sub       int
	composite bool
}

// Plain returns the identifier of top-level task n.
func Plain(n int) ID {
	return ID{task: n}
}

// Composite returns the identifier of subtask sub of task parent.
func Composite(parent, sub int) ID {
	return ID{task: parent, sub: sub, composite: true}
}

// IsSubtask reports whether the identifier addresses a subtask.
func (id ID) IsSubtask() bool { return id.composite }

// Task returns the top-level task id: the task itself for plain identifiers,
// the parent for composite ones.
func (id ID) Task() int { return id.task }

// Sub returns the subtask id, or 0 for plain identifiers.
func (id ID) Sub() int { return id.sub }

// String renders the canonical form.
func (id ID) String() string {
	return Format(id)
}

// Format renders plain identifiers as bare numbers and composite ones as "P.S".
func Format(id ID) string {
	if id.composite {
		return strconv.Itoa(id.task) + "." + strconv.Itoa(id.sub)
	}
	return strconv.Itoa(id.task)
}

// Less orders identifiers by task id, then plain before composite, then by
// subtask id.
func Less(a, b ID) bool {
	if a.task != b.task {
		return a.task < b.task
	}
	if a.composite != b.composite {
		return !a.composite
	}
	return a.sub < b.sub
}

// Compare is the three-way form of Less, suitable for slices.SortFunc.
func Compare(a, b ID) int {
	switch {
	case Less(a, b):
		return -1
	case Less(b, a):
		return 1
	default:
		return 0
	}
}

// Parse converts an integer, an integral float (as produced by encoding/json),
// a json.Number or a string into an ID.
func Parse(raw any) (ID, error) {
	switch v := raw.(type) {
	case ID:
		return v, nil
	case int:
		return fromInt64(int64(v), raw)
	case int8:
		return fromInt64(int64(v), raw)
	case int16:
		return fromInt64(int64(v), raw)
	case int32:
		return fromInt64(int64(v), raw)
	case int64:
		return fromInt64(v, raw)
	case uint:
		return fromInt64(int64(v), raw)
	case uint8:
		return fromInt64(int64(v), raw)
	case uint16:
		return fromInt64(int64(v), raw)
	case uint32:
		return fromInt64(int64(v), raw)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return ID{}, malformed(raw, "not an integer")
		}
		if v < 0 || v > math.MaxInt32 {
			return ID{}, malformed(raw, "out of range")
		}
		return Plain(int(v)), nil
	case json.Number:
		return ParseString(string(v))
	case string:
		return ParseString(v)
	case nil:
		return ID{}, malformed("null", "missing value")
	default:
		return ID{}, malformed(raw, fmt.Sprintf("unsupported type %T", raw))
	}
}

func fromInt64(n int64, raw any) (ID, error) {
	if n < 0 || n > math.MaxInt32 {
		return ID{}, malformed(raw, "out of range")
	}
	return Plain(int(n)), nil
}

// ParseString parses "7" or "7.2".
func ParseString(s string) (ID, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ID{}, malformed(s, "empty")
	}

	switch strings.Count(trimmed, ".") {
	case 0:
		n, err := parseNumber(trimmed)
		if err != nil {
			return ID{}, malformed(s, err.Error())
		}
		return Plain(n), nil
	case 1:
		head, tail, _ := strings.Cut(trimmed, ".")
		parent, err := parseNumber(head)
		if err != nil {
			return ID{}, malformed(s, "parent: "+err.Error())
		}
		sub, err := parseNumber(tail)
		if err != nil {
			return ID{}, malformed(s, "subtask: "+err.Error())
		}
		return Composite(parent, sub), nil
	default:
		return ID{}, malformed(s, "more than one '.'")
	}
}

// parseNumber accepts unsigned decimal digits only.
func parseNumber(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty component")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-numeric %q", s)
		}
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, errors.New("out of range")
	}
	return int(n), nil
}

// MustParse is Parse for literals known to be valid. It panics otherwise.
func MustParse(raw any) ID {
	id, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// ParseNumber reads a top-level task id that may arrive as a JSON number or a
// numeric string. Composite input is rejected.
func ParseNumber(raw any) (int, error) {
	id, err := Parse(raw)
	if err != nil {
		return 0, err
	}
	if id.composite {
		return 0, malformed(raw, "expected a task id, got a subtask id")
	}
	return id.task, nil
}

// MarshalJSON writes plain ids as numbers and composite ids as "P.S" strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.composite {
		return json.Marshal(Format(id))
	}
	return strconv.AppendInt(nil, int64(id.task), 10), nil
}

// UnmarshalJSON accepts numbers and strings interchangeably.
func (id *ID) UnmarshalJSON(data []byte) error {
	v, err := DecodeRaw(data)
	if err != nil {
		return err
	}
	parsed, err := Parse(v)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// DecodeRaw decodes a single JSON scalar keeping numbers as json.Number.
func DecodeRaw(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding identifier: %w", err)
	}
	return v, nil
}
