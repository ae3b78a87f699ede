package dialect

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Setting describes how statements are rendered for a database provider.
type Setting struct {
	// Name is the dialect name (one of the dialect constants).
	Name string
	// OpeningQuote and ClosingQuote wrap identifiers.
	OpeningQuote string
	ClosingQuote string
	// DefaultSchema is used when a table name is not schema-qualified.
	DefaultSchema string
	// BindType is the sqlx bind type the driver expects (?, $n or @pN).
	BindType int
	// TableHintsSupported reports whether table hints such as WITH (NOLOCK) are accepted.
	TableHintsSupported bool
	// MultiStatements reports whether several parameterized statements may be
	// sent in a single command.
	MultiStatements bool
	// ReturningIdentity reports whether inserts return the identity through the
	// statement itself (OUTPUT / RETURNING) instead of LastInsertId.
	ReturningIdentity bool
	// AverageableType is the cast applied to the argument of AVG, if any.
	AverageableType string
}

// Quote quotes an identifier. Schema-qualified names are quoted per part and
// parts that are already quoted are kept as is.
func (s Setting) Quote(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == "*" {
		return name
	}
	parts := s.split(name)
	for i, p := range parts {
		if strings.HasPrefix(p, s.OpeningQuote) && strings.HasSuffix(p, s.ClosingQuote) {
			continue
		}
		parts[i] = s.OpeningQuote + p + s.ClosingQuote
	}
	return strings.Join(parts, ".")
}

// Unquote removes the identifier quotes of every part of name.
func (s Setting) Unquote(name string) string {
	parts := s.split(strings.TrimSpace(name))
	for i, p := range parts {
		p = strings.TrimPrefix(p, s.OpeningQuote)
		parts[i] = strings.TrimSuffix(p, s.ClosingQuote)
	}
	return strings.Join(parts, ".")
}

// split splits a dotted name, ignoring dots inside quotes.
func (s Setting) split(name string) []string {
	if s.OpeningQuote == "" || s.ClosingQuote == "" {
		return strings.Split(name, ".")
	}
	var (
		parts  []string
		quoted bool
		start  int
	)
	for i := 0; i < len(name); i++ {
		switch {
		case !quoted && strings.HasPrefix(name[i:], s.OpeningQuote):
			quoted = true
		case quoted && strings.HasPrefix(name[i:], s.ClosingQuote):
			quoted = false
		case !quoted && name[i] == '.':
			parts = append(parts, name[start:i])
			start = i + 1
		}
	}
	return append(parts, name[start:])
}

// Param returns the named placeholder of the given parameter name.
// Placeholders are dialect neutral and are rebound to the provider's
// bind type before execution.
func (s Setting) Param(name string) string {
	return ":" + ParamName(s.Unquote(name))
}

// Rebind compiles a statement with named placeholders into the provider's
// positional form and returns the argument list in placeholder order.
// Without parameters the statement is returned unchanged, so colons in
// literals need no escaping. With parameters a literal colon is written
// "::".
func (s Setting) Rebind(query string, params map[string]any) (string, []any, error) {
	if len(params) == 0 {
		return query, nil, nil
	}
	q, args, err := sqlx.Named(query, params)
	if err != nil {
		return "", nil, fmt.Errorf("dialect: bind %s statement: %w", s.Name, err)
	}
	if s.BindType != sqlx.QUESTION && s.BindType != sqlx.UNKNOWN {
		q = sqlx.Rebind(s.BindType, q)
	}
	return q, args, nil
}

// ParamName converts a field name into a valid parameter name. Surrounding
// quotes are dropped and every other character that is not a letter, digit
// or underscore is replaced.
func ParamName(name string) string {
	name = strings.Trim(name, "[]`\" ")
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

var settings = struct {
	sync.RWMutex
	m map[string]Setting
}{
	m: map[string]Setting{
		SQLServer: {
			Name:                SQLServer,
			OpeningQuote:        "[",
			ClosingQuote:        "]",
			DefaultSchema:       "dbo",
			BindType:            sqlx.AT,
			TableHintsSupported: true,
			MultiStatements:     true,
			ReturningIdentity:   true,
			AverageableType:     "FLOAT",
		},
		MySQL: {
			Name:         MySQL,
			OpeningQuote: "`",
			ClosingQuote: "`",
			BindType:     sqlx.QUESTION,
		},
		Postgres: {
			Name:              Postgres,
			OpeningQuote:      `"`,
			ClosingQuote:      `"`,
			DefaultSchema:     "public",
			BindType:          sqlx.DOLLAR,
			ReturningIdentity: true,
		},
		SQLite: {
			Name:          SQLite,
			OpeningQuote:  "[",
			ClosingQuote:  "]",
			DefaultSchema: "main",
			BindType:      sqlx.QUESTION,
		},
	},
}

// Register adds or replaces the setting of a dialect.
func Register(s Setting) {
	settings.Lock()
	defer settings.Unlock()
	settings.m[s.Name] = s
}

// Get returns the setting registered for the given dialect or driver name.
func Get(name string) (Setting, bool) {
	settings.RLock()
	defer settings.RUnlock()
	if s, ok := settings.m[name]; ok {
		return s, true
	}
	s, ok := settings.m[Normalize(name)]
	return s, ok
}
