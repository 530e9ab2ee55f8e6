package envvibe

import (
	"regexp"
	"strings"
	"sync"

	"github.com/shinji-kodama/envvibe/internal/model"
)

// Placeholder grammar. These expressions are the contract with template
// authors: `{{` and `}}` delimiters, a zero-argument function call, any
// amount of interior whitespace, and an optional `| default` modifier.
const (
	// autoPortExpr matches {{ auto_port() }} and {{ auto_port() | 8080 }}.
	// The modifier is accepted but never used.
	autoPortExpr = `\{\{\s*auto_port\(\)(?:\s*\|\s*[^}]*)?\s*\}\}`

	// branchExpr matches {{ branch() }} and {{ branch() | default }}.
	// Group 1 captures the default text, untrimmed.
	branchExpr = `\{\{\s*branch\(\)(?:\s*\|\s*([^}]*))?\s*\}\}`

	// envVarExpr captures NAME from a line shaped like NAME=value.
	envVarExpr = `^([A-Za-z_][A-Za-z0-9_]*)\s*=`
)

// patterns holds the compiled placeholder expressions.
type patterns struct {
	autoPort *regexp.Regexp
	branch   *regexp.Regexp
	envVar   *regexp.Regexp
}

// loadPatterns compiles the placeholder expressions once per process.
// A compile failure is reported as *model.PatternError on every call.
var loadPatterns = sync.OnceValues(func() (*patterns, error) {
	return compilePatterns(autoPortExpr, branchExpr, envVarExpr)
})

func compilePatterns(autoPort, branch, envVar string) (*patterns, error) {
	p := &patterns{}
	for _, c := range []struct {
		expr string
		dst  **regexp.Regexp
	}{
		{autoPort, &p.autoPort},
		{branch, &p.branch},
		{envVar, &p.envVar},
	} {
		re, err := regexp.Compile(c.expr)
		if err != nil {
			return nil, &model.PatternError{Pattern: c.expr, Err: err}
		}
		*c.dst = re
	}
	return p, nil
}

// hasPortPlaceholder reports whether line still contains an auto_port()
// placeholder.
func (p *patterns) hasPortPlaceholder(line string) bool {
	return p.autoPort.MatchString(line)
}

// replaceFirstPort substitutes value for the leftmost auto_port()
// placeholder and leaves later ones untouched.
func (p *patterns) replaceFirstPort(line, value string) string {
	loc := p.autoPort.FindStringIndex(line)
	if loc == nil {
		return line
	}
	return line[:loc[0]] + value + line[loc[1]:]
}

// variableName returns NAME for a line of the form NAME=..., or "" when
// the line does not start with an identifier followed by '='.
func (p *patterns) variableName(line string) string {
	m := p.envVar.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

// replaceBranches substitutes every branch() placeholder on line in a
// single pass.
//
// A non-empty branchName always wins. Without one, a placeholder carrying
// a default is replaced by the trimmed default (which may be empty), and a
// placeholder without a default is kept verbatim.
func (p *patterns) replaceBranches(line, branchName string) string {
	matches := p.branch.FindAllStringSubmatchIndex(line, -1)
	if matches == nil {
		return line
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(line[last:m[0]])
		switch {
		case branchName != "":
			b.WriteString(branchName)
		case m[2] >= 0:
			b.WriteString(strings.TrimSpace(line[m[2]:m[3]]))
		default:
			b.WriteString(line[m[0]:m[1]])
		}
		last = m[1]
	}
	b.WriteString(line[last:])
	return b.String()
}
