package cgi

import (
	"maps"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultInterpreters maps script extensions to the program that runs them.
// An empty interpreter means the script is executed directly.
func DefaultInterpreters() map[string]string {
	return map[string]string{
		".py":  "/usr/bin/python3",
		".pl":  "/usr/bin/perl",
		".sh":  "/bin/bash",
		".rb":  "/usr/bin/ruby",
		".php": "/usr/bin/php",
		".cgi": "",
	}
}

// InterpreterTable is an immutable extension to interpreter mapping. The zero
// value is an empty table.
type InterpreterTable struct {
	m map[string]string
}

// NewInterpreterTable copies m. Keys are normalized to a lower-case extension
// with a leading dot.
func NewInterpreterTable(m map[string]string) InterpreterTable {
	t := InterpreterTable{m: make(map[string]string, len(m))}
	for ext, interp := range m {
		t.m[normalizeExt(ext)] = interp
	}
	return t
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Lookup returns the interpreter registered for ext. ok is true for
// registered extensions even when the interpreter is empty.
func (t InterpreterTable) Lookup(ext string) (interp string, ok bool) {
	interp, ok = t.m[normalizeExt(ext)]
	return interp, ok
}

// ForScript looks up the interpreter for a script path by its extension.
func (t InterpreterTable) ForScript(scriptPath string) (string, bool) {
	return t.Lookup(filepath.Ext(scriptPath))
}

// Extensions returns the registered extensions, sorted.
func (t InterpreterTable) Extensions() []string {
	return slices.Sorted(maps.Keys(t.m))
}

// Len returns the number of registered extensions.
func (t InterpreterTable) Len() int {
	return len(t.m)
}
