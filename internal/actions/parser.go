// Package actions turns a model reply into an ordered list of parsed
// action calls. The text grammar is one call per line,
// name(arg, key=value, ...), with literals limited to quoted strings,
// signed numbers, booleans, bare words, and bracketed lists of literals.
//
// Parsing is deliberately strict at the block level: the first line that is
// neither a recognized call nor the configured call-label marker stops the
// block, so the model cannot smuggle prose into later positions.
package actions

import (
	"fmt"
	"strconv"
	"strings"
)

// Arg is one argument token. Name is empty for positional arguments; the
// dispatcher fills positional names from the action's declared parameter
// order. Value holds the raw literal: string, int64, float64, bool, or
// []any of those.
type Arg struct {
	Name  string
	Value any
}

// ParsedAction is one parsed call, consumed immediately by the dispatcher.
type ParsedAction struct {
	Name string
	Args []Arg
}

// Parser recognizes call lines by the capability's action-name prefix. An
// optional label marker (e.g. "API calls:") before a call is stripped.
type Parser struct {
	// Prefix is the action-naming convention, e.g. "cozmo_". A line whose
	// callee does not carry the prefix terminates the block.
	Prefix string
	// Label is the call-label marker tolerated before a call line.
	Label string
}

// NewParser returns a parser for the given action-name prefix and call
// label.
func NewParser(prefix, label string) *Parser {
	return &Parser{Prefix: prefix, Label: label}
}

// Parse extracts calls from a model reply. It returns the calls parsed
// before the first invalid line and, when parsing stopped early, a
// diagnostic describing the offending line. Empty lines are skipped,
// whitespace is trimmed.
func (p *Parser) Parse(reply string) (calls []ParsedAction, diag string) {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if p.Label != "" {
			if rest, ok := strings.CutPrefix(line, p.Label+":"); ok {
				line = strings.TrimSpace(rest)
				if line == "" {
					continue
				}
			}
		}

		if !strings.HasPrefix(line, p.Prefix) {
			return calls, fmt.Sprintf("Got an invalid API call: %q.", line)
		}

		call, err := parseCall(line)
		if err != nil {
			return calls, fmt.Sprintf("Got an invalid API call: %q.", line)
		}
		calls = append(calls, call)
	}
	return calls, ""
}

// FromStructured converts one native tool-call record into a ParsedAction,
// preserving argument names. Values pass through as the backend decoded
// them.
func FromStructured(name string, args map[string]any) ParsedAction {
	pa := ParsedAction{Name: name, Args: make([]Arg, 0, len(args))}
	for _, key := range sortedKeys(args) {
		pa.Args = append(pa.Args, Arg{Name: key, Value: args[key]})
	}
	return pa
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Insertion order is unknowable from a Go map; sort for determinism.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

func parseCall(line string) (ParsedAction, error) {
	open := strings.IndexByte(line, '(')
	if open < 0 {
		return ParsedAction{}, fmt.Errorf("missing opening parenthesis")
	}
	close := strings.LastIndexByte(line, ')')
	if close < open {
		return ParsedAction{}, fmt.Errorf("missing closing parenthesis")
	}

	name := strings.TrimSpace(line[:open])
	if name == "" {
		return ParsedAction{}, fmt.Errorf("missing function name")
	}
	if trailing := strings.TrimSpace(line[close+1:]); trailing != "" && trailing != "." && trailing != ";" {
		return ParsedAction{}, fmt.Errorf("trailing content after call")
	}

	args, err := parseArgs(line[open+1 : close])
	if err != nil {
		return ParsedAction{}, err
	}
	return ParsedAction{Name: name, Args: args}, nil
}

func parseArgs(s string) ([]Arg, error) {
	var args []Arg
	for _, tok := range splitTopLevel(s) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		name := ""
		if eq := topLevelEquals(tok); eq >= 0 {
			name = strings.TrimSpace(tok[:eq])
			tok = strings.TrimSpace(tok[eq+1:])
		}

		val, err := parseLiteral(tok)
		if err != nil {
			return nil, err
		}
		args = append(args, Arg{Name: name, Value: val})
	}
	return args, nil
}

// splitTopLevel splits on commas that are not inside quotes or brackets.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	if strings.TrimSpace(s) == "" && len(parts) == 0 {
		return nil
	}
	parts = append(parts, s[start:])
	return parts
}

// topLevelEquals finds a keyword separator outside quotes and brackets.
func topLevelEquals(s string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			depth--
		case c == '=' && depth == 0:
			return i
		}
	}
	return -1
}

// parseLiteral recognizes quoted strings, signed integers and floats,
// booleans, bracketed lists, and bare words. Anything unrecognized stays a
// string.
func parseLiteral(tok string) (any, error) {
	if tok == "" {
		return "", nil
	}

	if len(tok) >= 2 {
		if (tok[0] == '"' && tok[len(tok)-1] == '"') || (tok[0] == '\'' && tok[len(tok)-1] == '\'') {
			return tok[1 : len(tok)-1], nil
		}
	}

	if tok[0] == '[' {
		if tok[len(tok)-1] != ']' {
			return nil, fmt.Errorf("unterminated list literal")
		}
		var list []any
		for _, elem := range splitTopLevel(tok[1 : len(tok)-1]) {
			elem = strings.TrimSpace(elem)
			if elem == "" {
				continue
			}
			v, err := parseLiteral(elem)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	}

	switch tok {
	case "true", "True":
		return true, nil
	case "false", "False":
		return false, nil
	}

	if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return f, nil
	}

	return tok, nil
}
