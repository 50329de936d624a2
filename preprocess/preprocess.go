// Package preprocess implements the textual directive pass that runs before
// lexing: #include, #define, and #ifdef/#ifndef/#endif conditional blocks.
package preprocess

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tinycc/cerr"
)

// Preprocessor expands directives in a source string, resolving #include
// relative to a base directory (the directory of the file being compiled).
type Preprocessor struct {
	baseDir string
	defs    map[string]string
}

// New constructs a Preprocessor that resolves #include paths relative to
// baseDir.
func New(baseDir string) *Preprocessor {
	return &Preprocessor{baseDir: baseDir, defs: make(map[string]string)}
}

// Run expands every directive in source and returns the fully-substituted
// text, or the first error encountered (unresolvable include, malformed
// directive, or unbalanced ifdef/ifndef/endif nesting).
func (p *Preprocessor) Run(source string) (string, error) {
	out, err := p.expand(source, 0)
	if err != nil {
		return "", err
	}
	return out, nil
}

// expand processes source line by line, honoring nested conditional blocks.
// depth guards against unbounded include recursion.
func (p *Preprocessor) expand(source string, depth int) (string, error) {
	if depth > 64 {
		return "", fmt.Errorf("preprocess: include nesting too deep (> 64)")
	}

	lines := strings.Split(source, "\n")
	var out strings.Builder

	// condStack tracks, for each currently-open ifdef/ifndef block, whether
	// its body is currently active (condition held and no enclosing block
	// is itself inactive).
	var condStack []bool

	active := func() bool {
		for _, c := range condStack {
			if !c {
				return false
			}
		}
		return true
	}

	for lineNo, rawLine := range lines {
		line := rawLine
		trimmed := strings.TrimSpace(line)

		if !strings.HasPrefix(trimmed, "#") {
			if active() {
				out.WriteString(p.substituteDefines(line))
			}
			out.WriteByte('\n')
			continue
		}

		directive := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
		word, rest := splitDirective(directive)

		switch word {
		case "include":
			if !active() {
				out.WriteByte('\n')
				continue
			}
			path, err := parseQuotedPath(rest)
			if err != nil {
				return "", fmt.Errorf("preprocess: line %d: %w", lineNo+1, err)
			}
			full := path
			if !filepath.IsAbs(full) {
				full = filepath.Join(p.baseDir, path)
			}
			contents, err := os.ReadFile(full)
			if err != nil {
				return "", fmt.Errorf("preprocess: line %d: cannot read include %q: %w", lineNo+1, path, err)
			}
			expanded, err := p.expand(string(contents), depth+1)
			if err != nil {
				return "", err
			}
			out.WriteString(expanded)

		case "define":
			if !active() {
				out.WriteByte('\n')
				continue
			}
			name, text := splitDirective(rest)
			if name == "" {
				return "", fmt.Errorf("preprocess: line %d: #define requires a name", lineNo+1)
			}
			p.defs[name] = text
			out.WriteByte('\n')

		case "ifdef":
			name := strings.TrimSpace(rest)
			_, defined := p.defs[name]
			condStack = append(condStack, defined)
			out.WriteByte('\n')

		case "ifndef":
			name := strings.TrimSpace(rest)
			_, defined := p.defs[name]
			condStack = append(condStack, !defined)
			out.WriteByte('\n')

		case "endif":
			if len(condStack) == 0 {
				return "", fmt.Errorf("preprocess: line %d: unbalanced #endif with no matching ifdef/ifndef", lineNo+1)
			}
			condStack = condStack[:len(condStack)-1]
			out.WriteByte('\n')

		default:
			return "", fmt.Errorf("preprocess: line %d: unrecognized directive %q", lineNo+1, word)
		}
	}

	if len(condStack) != 0 {
		return "", cerr.NewUnbalancedConditional(int32(len(lines)), len(condStack))
	}

	return out.String(), nil
}

// substituteDefines replaces whole-word occurrences of any #define'd name in
// line with its replacement text.
func (p *Preprocessor) substituteDefines(line string) string {
	if len(p.defs) == 0 {
		return line
	}
	var out strings.Builder
	i := 0
	for i < len(line) {
		if isIdentStart(rune(line[i])) {
			j := i + 1
			for j < len(line) && isIdentPart(rune(line[j])) {
				j++
			}
			word := line[i:j]
			if repl, ok := p.defs[word]; ok {
				out.WriteString(repl)
			} else {
				out.WriteString(word)
			}
			i = j
			continue
		}
		out.WriteByte(line[i])
		i++
	}
	return out.String()
}

func isIdentStart(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || '0' <= ch && ch <= '9'
}

// splitDirective splits "NAME rest-of-line" on the first run of whitespace,
// returning NAME and the (untrimmed-on-the-left) remainder.
func splitDirective(s string) (string, string) {
	s = strings.TrimLeft(s, " \t")
	idx := strings.IndexAny(s, " \t")
	if idx == -1 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx+1:])
}

// parseQuotedPath extracts the PATH out of a `"PATH"` token in an #include
// directive's remainder.
func parseQuotedPath(rest string) (string, error) {
	rest = strings.TrimSpace(rest)
	if len(rest) < 2 || rest[0] != '"' {
		return "", fmt.Errorf("malformed #include, expected a quoted path, got %q", rest)
	}
	end := strings.IndexByte(rest[1:], '"')
	if end == -1 {
		return "", fmt.Errorf("malformed #include, unterminated quoted path %q", rest)
	}
	return rest[1 : 1+end], nil
}
