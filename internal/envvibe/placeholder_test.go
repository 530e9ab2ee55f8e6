package envvibe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/envvibe/internal/model"
)

func mustPatterns(t *testing.T) *patterns {
	t.Helper()
	p, err := loadPatterns()
	require.NoError(t, err)
	return p
}

// TestHasPortPlaceholder covers the whitespace variants and the ignored
// default modifier.
func TestHasPortPlaceholder(t *testing.T) {
	p := mustPatterns(t)

	tests := []struct {
		line string
		want bool
	}{
		{"PORT={{auto_port()}}", true},
		{"PORT={{ auto_port() }}", true},
		{"PORT={{  auto_port()  }}", true},
		{"PORT={{ auto_port()}}", true},
		{"PORT={{auto_port() }}", true},
		{"PORT={{ auto_port() | 8080 }}", true},
		{"PORT={{ auto_port()|8080}}", true},
		{"PORT={{\tauto_port()\t}}", true},
		{"PORT={{ auto_port }}", false},
		{"PORT={{ auto_port(1) }}", false},
		{"PORT={ auto_port() }", false},
		{"PORT=3000", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, p.hasPortPlaceholder(tt.line))
		})
	}
}

// TestReplaceFirstPort verifies that only the leftmost placeholder changes.
func TestReplaceFirstPort(t *testing.T) {
	p := mustPatterns(t)

	line := "PORTS={{ auto_port() }},{{auto_port()|9}}"
	line = p.replaceFirstPort(line, "1111")
	assert.Equal(t, "PORTS=1111,{{auto_port()|9}}", line)

	line = p.replaceFirstPort(line, "2222")
	assert.Equal(t, "PORTS=1111,2222", line)

	assert.Equal(t, "PORTS=1111,2222", p.replaceFirstPort(line, "3333"), "no placeholder left")
}

// TestVariableName covers the identifier rules and the anchoring at line start.
func TestVariableName(t *testing.T) {
	p := mustPatterns(t)

	tests := []struct {
		line string
		want string
	}{
		{"WEB_PORT={{ auto_port() }}", "WEB_PORT"},
		{"_PRIVATE=1", "_PRIVATE"},
		{"db_port2 = 5432", "db_port2"},
		{"API_URL=http://localhost:{{ auto_port() }}", "API_URL"},
		{"2FA_PORT=1", ""},
		{"  INDENTED=1", ""},
		{"export PORT=1", ""},
		{"# PORT=1", ""},
		{"http://localhost:{{ auto_port() }}", ""},
		{"NO_EQUALS", ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, p.variableName(tt.line))
		})
	}
}

// TestReplaceBranches covers branch precedence, trimmed defaults and the
// verbatim fallback.
func TestReplaceBranches(t *testing.T) {
	p := mustPatterns(t)

	tests := []struct {
		name   string
		line   string
		branch string
		want   string
	}{
		{"branch wins", "ENV={{ branch() }}", "feature/login", "ENV=feature/login"},
		{"branch wins over default", "ENV={{ branch() | anything }}", "feature/login", "ENV=feature/login"},
		{"default used", "ENV={{ branch() | production }}", "", "ENV=production"},
		{"default trimmed", "ENV={{branch()|   staging   }}", "", "ENV=staging"},
		{"empty default", "ENV={{ branch() | }}", "", "ENV="},
		{"kept verbatim", "ENV={{  branch()  }}", "", "ENV={{  branch()  }}"},
		{"all occurrences", "X={{ branch() }}-{{branch()|d}}", "main", "X=main-main"},
		{"mixed defaults", "X={{ branch() }}-{{branch()|d}}", "", "X={{ branch() }}-d"},
		{"no placeholder", "X=plain", "main", "X=plain"},
		{"port untouched", "X={{ auto_port() }}", "main", "X={{ auto_port() }}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.replaceBranches(tt.line, tt.branch))
		})
	}
}

// TestCompilePatterns_Error verifies that a malformed expression surfaces
// as a PatternError instead of a panic.
func TestCompilePatterns_Error(t *testing.T) {
	_, err := compilePatterns(autoPortExpr, `\{\{\s*branch\(`, envVarExpr)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrPattern))

	var pe *model.PatternError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, `\{\{\s*branch\(`, pe.Pattern)
}
