package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type section struct {
	name string
	opts []ConfigOption
}

// splitSections groups options by the part of the key before the first
// dot. Top-level keys come first under the empty section name.
func splitSections(opts []ConfigOption) []section {
	out := []section{{}}
	index := map[string]int{"": 0}
	for _, o := range opts {
		name, key := "", o.Key
		if i := strings.IndexByte(o.Key, '.'); i >= 0 {
			name, key = o.Key[:i], o.Key[i+1:]
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, section{name: name})
		}
		out[i].opts = append(out[i].opts, ConfigOption{Key: key, Default: o.Default, Comment: o.Comment})
	}
	return out
}

// RenderDefaultTOML renders a commented config.toml holding every default.
func RenderDefaultTOML() string {
	var lines []string
	lines = append(lines, "# hashmark configuration (TOML)", "")
	for _, s := range splitSections(GetConfigOptions()) {
		if len(s.opts) == 0 {
			continue
		}
		if s.name != "" {
			lines = append(lines, "["+s.name+"]")
		}
		for _, o := range s.opts {
			lines = appendOption(lines, o)
		}
	}
	return strings.Join(lines, "\n")
}

// UpdateTOML adds options missing from existing and comments out keys
// that are no longer recognised. Missing keys of a table that already
// exists are inserted into that table so the result stays valid TOML.
// It reports whether anything changed.
func UpdateTOML(existing string) (string, bool) {
	known := make(map[string]bool)
	for _, o := range GetConfigOptions() {
		known[o.Key] = true
	}

	seen := make(map[string]bool)
	// lastLine maps a table name to the index in out of its last key.
	lastLine := map[string]int{}
	firstHeader := -1
	current := ""
	changed := false
	in := strings.Split(existing, "\n")
	out := make([]string, 0, len(in))
	for _, line := range in {
		trim := strings.TrimSpace(line)
		switch {
		case trim == "" || strings.HasPrefix(trim, "#"):
			out = append(out, line)
			continue
		case strings.HasPrefix(trim, "[") && strings.HasSuffix(trim, "]"):
			current = strings.TrimSpace(trim[1 : len(trim)-1])
			if firstHeader < 0 {
				firstHeader = len(out)
			}
			lastLine[current] = len(out)
			out = append(out, line)
			continue
		}
		key, ok := parseTOMLKey(line)
		if !ok {
			out = append(out, line)
			continue
		}
		if current != "" {
			key = current + "." + key
		}
		seen[key] = true
		if known[key] {
			lastLine[current] = len(out)
			out = append(out, line)
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		out = append(out, indent+"# OUTDATED: option removed from config schema", indent+"# "+strings.TrimLeft(line, " \t"))
		changed = true
	}

	var missing []ConfigOption
	for _, o := range GetConfigOptions() {
		if !seen[o.Key] {
			missing = append(missing, o)
		}
	}
	if len(missing) == 0 {
		return strings.Join(out, "\n"), changed
	}

	type insertion struct {
		at    int
		lines []string
	}
	var inserts []insertion
	var appended []string
	for _, s := range splitSections(missing) {
		if len(s.opts) == 0 {
			continue
		}
		block := []string{"# Added by config update"}
		for _, o := range s.opts {
			block = appendOption(block, o)
		}
		if s.name == "" {
			at := len(out)
			if firstHeader >= 0 {
				at = firstHeader
			}
			inserts = append(inserts, insertion{at: at, lines: block})
			continue
		}
		if i, ok := lastLine[s.name]; ok {
			inserts = append(inserts, insertion{at: i + 1, lines: block})
			continue
		}
		appended = append(appended, "", "["+s.name+"]")
		appended = append(appended, block...)
	}
	sort.SliceStable(inserts, func(i, j int) bool { return inserts[i].at > inserts[j].at })
	for _, ins := range inserts {
		out = append(out[:ins.at], append(ins.lines, out[ins.at:]...)...)
	}
	out = append(out, appended...)
	return strings.Join(out, "\n"), true
}

func parseTOMLKey(line string) (string, bool) {
	idx := strings.Index(line, "=")
	if idx == -1 {
		return "", false
	}
	key := strings.TrimSpace(line[:idx])
	if key == "" || strings.ContainsAny(key[:1], `["'`) {
		return "", false
	}
	return key, true
}

func appendOption(lines []string, o ConfigOption) []string {
	if o.Comment != "" {
		lines = append(lines, "# "+o.Comment)
	}
	return append(lines, o.Key+" = "+formatTOMLValue(o.Default), "")
}

func formatTOMLValue(v any) string {
	switch v := v.(type) {
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []string:
		quoted := make([]string, len(v))
		for i, s := range v {
			quoted[i] = strconv.Quote(s)
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	default:
		return strconv.Quote(fmt.Sprint(v))
	}
}
