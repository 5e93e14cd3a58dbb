// Package envfile implements the line-preserving merge engine behind
// envit pull: parsing an existing env file into lines, merging fetched
// secret values into it without disturbing unrelated content, and writing
// the result back atomically.
package envfile

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ChangeKind distinguishes a newly introduced variable from an updated one.
type ChangeKind int

const (
	// ChangeAdd marks a variable that did not exist in the file before.
	ChangeAdd ChangeKind = iota
	// ChangeUpdate marks a variable whose value text actually changed.
	ChangeUpdate
)

// String returns the label used in change reports.
func (k ChangeKind) String() string {
	if k == ChangeAdd {
		return "ADD"
	}
	return "UPDATE"
}

// Change records one variable the merge touched. It deliberately carries no
// value so change reports are safe to print anywhere.
type Change struct {
	Key  string
	Kind ChangeKind
}

// Line is one classified line of an env file: either an opaque raw line,
// reproduced byte-for-byte, or a KEY=value entry whose value segment the
// merge may rewrite.
type Line struct {
	raw    string
	key    string
	prefix string // everything up to and including '=', verbatim
	value  string
	entry  bool
}

// Parse classifies a single line. It is total: anything it does not
// recognize as a KEY=value entry passes through as a raw line, so merging
// never corrupts content this tool does not understand.
func Parse(text string) Line {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return Line{raw: text}
	}

	eq := strings.IndexByte(text, '=')
	if eq < 0 {
		return Line{raw: text}
	}

	lhs := text[:eq]
	key := strings.TrimSpace(lhs)
	if !validKey(key) {
		return Line{raw: text}
	}

	return Line{
		key:    key,
		prefix: lhs + "=",
		value:  text[eq+1:],
		entry:  true,
	}
}

// validKey reports whether key is a syntactically valid variable name:
// a letter or underscore followed by letters, digits, or underscores.
func validKey(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c == '_':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Load reads the env file at path and classifies its lines. A missing file
// yields an empty document when createIfMissing is set and an error
// otherwise, so the caller can fail before contacting any secret store.
func Load(path string, createIfMissing bool) ([]Line, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if createIfMissing {
				return nil, nil
			}
			return nil, fmt.Errorf("env file does not exist: %s", path)
		}
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	content := string(data)
	if content == "" {
		return nil, nil
	}
	// The final newline is the file terminator, not an empty last line.
	content = strings.TrimSuffix(content, "\n")

	parts := strings.Split(content, "\n")
	lines := make([]Line, len(parts))
	for i, part := range parts {
		// CRLF files normalize to LF: without this, every value would
		// carry a trailing '\r' and resupplying an identical value would
		// register as an update.
		lines[i] = Parse(strings.TrimSuffix(part, "\r"))
	}
	return lines, nil
}

// Merge combines classified lines with a map of variable -> new value.
//
// Existing lines keep their order. Raw lines pass through verbatim. Entries
// named in updates are rewritten as prefix + new value, recording an Update
// only when the value text actually differs. Variables left over after the
// walk are appended as NAME=value in lexicographic order, each recorded as
// an Add.
//
// The returned text joins lines with single newlines and carries no
// trailing newline; WriteAtomic appends the file terminator. Merge is
// idempotent: applying the same updates twice yields identical text and no
// changes on the second pass.
func Merge(lines []Line, updates map[string]string) (string, []Change) {
	remaining := make(map[string]string, len(updates))
	for k, v := range updates {
		remaining[k] = v
	}

	out := make([]string, 0, len(lines)+len(remaining))
	var changes []Change

	for _, line := range lines {
		if !line.entry {
			out = append(out, line.raw)
			continue
		}
		if newValue, ok := remaining[line.key]; ok {
			delete(remaining, line.key)
			if newValue != line.value {
				changes = append(changes, Change{Key: line.key, Kind: ChangeUpdate})
			}
			out = append(out, line.prefix+newValue)
		} else {
			out = append(out, line.prefix+line.value)
		}
	}

	added := make([]string, 0, len(remaining))
	for key := range remaining {
		added = append(added, key)
	}
	sort.Strings(added)
	for _, key := range added {
		changes = append(changes, Change{Key: key, Kind: ChangeAdd})
		out = append(out, key+"="+remaining[key])
	}

	return strings.Join(out, "\n"), changes
}
