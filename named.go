package xmat

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Placeholder selects the positional parameter style of the target database.
//
//   - PlaceholderQuestion  → ?              (SQLite, MySQL, DuckDB)
//   - PlaceholderDollar    → $1, $2, …      (PostgreSQL)
//   - PlaceholderAtP       → @p1, @p2, …    (SQL Server)
//   - PlaceholderColonNum  → :1, :2, …      (Oracle)
type Placeholder int

const (
	PlaceholderQuestion Placeholder = iota
	PlaceholderDollar
	PlaceholderAtP
	PlaceholderColonNum
)

var (
	// ErrNilParams is returned by Named when params is nil or a nil pointer.
	ErrNilParams = errors.New("xmat: named parameters: nil params")

	// ErrUnsupportedParams is returned by Named when params is neither a
	// struct nor a map with string keys.
	ErrUnsupportedParams = errors.New("xmat: named parameters: params must be a struct or a map with string keys")

	// ErrMissingParam is returned by Named when a :name in the text has no
	// value in params.
	ErrMissingParam = errors.New("xmat: named parameters: no value")

	// ErrUnterminated is returned when a quoted string, quoted identifier,
	// block comment or dollar-quoted body never closes.
	ErrUnterminated = errors.New("xmat: unterminated")
)

// PlaceholderFor picks a Placeholder from a database/sql driver name.
// Unknown names get PlaceholderQuestion.
func PlaceholderFor(driverName string) Placeholder {
	switch strings.ToLower(driverName) {
	case "pgx", "postgres", "postgresql", "lib/pq", "pg":
		return PlaceholderDollar
	case "sqlserver", "mssql":
		return PlaceholderAtP
	case "godror", "oracle", "goracle":
		return PlaceholderColonNum
	default:
		return PlaceholderQuestion
	}
}

func (ph Placeholder) write(b *strings.Builder, n int) {
	switch ph {
	case PlaceholderDollar:
		b.WriteByte('$')
	case PlaceholderAtP:
		b.WriteString("@p")
	case PlaceholderColonNum:
		b.WriteByte(':')
	default:
		b.WriteByte('?')
		return
	}
	b.WriteString(strconv.Itoa(n))
}

// Named builds a Command from text carrying :name parameters. params is a
// struct (or pointer to one) or a map with string keys. Struct members are
// named the way materialization names them: the Mapper's tag, else the field
// name, with fields of embedded structs promoted and `db:"-"` members left
// out. Names match exactly unless WithFoldCase is set.
//
// Each :name becomes one placeholder in the Mapper's style (see
// WithPlaceholder). A slice or array value expands to one placeholder per
// element, and an empty one to NULL; []byte and driver.Valuer values stay
// scalar. PostgreSQL casts (::type) are kept, and nothing inside quotes,
// comments or $tag$ bodies is touched.
//
// The returned Command keeps the fingerprint of text, so every expansion of
// an IN list shares one materializer.
func (m *Mapper) Named(text string, params any) (Command, error) {
	spans, err := splitSQL(text)
	if err != nil {
		return Command{}, err
	}
	lookup, err := m.paramLookup(params)
	if err != nil {
		return Command{}, err
	}

	var b strings.Builder
	b.Grow(len(text) + 16)
	var args []any
	n := 0

	for _, sp := range spans {
		if !sp.code {
			b.WriteString(sp.text)
			continue
		}
		s := sp.text
		for i := 0; i < len(s); {
			if s[i] != ':' || i+1 == len(s) {
				b.WriteByte(s[i])
				i++
				continue
			}
			if s[i+1] == ':' {
				b.WriteString("::")
				i += 2
				continue
			}
			name, end := parseParamName(s, i+1)
			if name == "" {
				b.WriteByte(':')
				i++
				continue
			}
			val, ok := lookup(name)
			if !ok {
				return Command{}, fmt.Errorf("%w for :%s", ErrMissingParam, name)
			}
			args, n = m.bindValue(&b, args, n, val)
			i = end
		}
	}
	return Command{Text: b.String(), Args: args, source: text}, nil
}

func (m *Mapper) bindValue(b *strings.Builder, args []any, n int, val any) ([]any, int) {
	rv := reflect.ValueOf(val)
	if !expands(rv) {
		n++
		m.ph.write(b, n)
		return append(args, val), n
	}
	if rv.Len() == 0 {
		b.WriteString("NULL")
		return args, n
	}
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		n++
		m.ph.write(b, n)
		args = append(args, rv.Index(i).Interface())
	}
	return args, n
}

func expands(rv reflect.Value) bool {
	if !rv.IsValid() || rv.Type().Implements(valuerType) {
		return false
	}
	switch rv.Kind() {
	case reflect.Slice:
		return rv.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	}
	return false
}

var valuerType = typeFor[driver.Valuer]()

// paramLookup resolves parameter names against params.
func (m *Mapper) paramLookup(params any) (func(string) (any, bool), error) {
	rv := reflect.ValueOf(params)
	if !rv.IsValid() {
		return nil, ErrNilParams
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, ErrNilParams
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, ErrUnsupportedParams
		}
		values := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			values[m.key(iter.Key().String())] = iter.Value().Interface()
		}
		return func(name string) (any, bool) {
			v, ok := values[m.key(name)]
			return v, ok
		}, nil

	case reflect.Struct:
		ti := m.typeInfo(rv.Type())
		return func(name string) (any, bool) {
			mem, ok := ti.lookup(m.key(name))
			if !ok {
				return nil, false
			}
			// A nil embedded pointer hides the members behind it.
			fv, err := rv.FieldByIndexErr(mem.path)
			if err != nil {
				return nil, false
			}
			return fv.Interface(), true
		}, nil
	}
	return nil, ErrUnsupportedParams
}

// Rebind rewrites the ? placeholders of c into ph's style. The result keeps
// c's fingerprint.
func (c Command) Rebind(ph Placeholder) (Command, error) {
	if ph == PlaceholderQuestion {
		return c, nil
	}
	spans, err := splitSQL(c.Text)
	if err != nil {
		return Command{}, err
	}
	var b strings.Builder
	b.Grow(len(c.Text) + 16)
	n := 0
	for _, sp := range spans {
		if !sp.code {
			b.WriteString(sp.text)
			continue
		}
		for i := 0; i < len(sp.text); i++ {
			if sp.text[i] == '?' {
				n++
				ph.write(&b, n)
				continue
			}
			b.WriteByte(sp.text[i])
		}
	}
	return Command{Text: b.String(), Args: c.Args, source: c.identity()}, nil
}

/* ---------------------------
   Lexing
----------------------------*/

// sqlSpan is a piece of command text. Only code spans carry parameters;
// the others are quoted strings, quoted identifiers, comments and
// dollar-quoted bodies, copied through as they are.
type sqlSpan struct {
	text string
	code bool
}

func splitSQL(s string) ([]sqlSpan, error) {
	var spans []sqlSpan
	start := 0
	for i := 0; i < len(s); {
		end, err := skipLiteral(s, i)
		if err != nil {
			return nil, err
		}
		if end == i {
			i++
			continue
		}
		if i > start {
			spans = append(spans, sqlSpan{text: s[start:i], code: true})
		}
		spans = append(spans, sqlSpan{text: s[i:end]})
		i, start = end, end
	}
	if start < len(s) {
		spans = append(spans, sqlSpan{text: s[start:], code: true})
	}
	return spans, nil
}

// skipLiteral returns the end of the literal starting at i, or i when none
// starts there.
func skipLiteral(s string, i int) (int, error) {
	switch s[i] {
	case '\'', '"', '`':
		return skipDelimited(s, i)
	case '-':
		if strings.HasPrefix(s[i:], "--") {
			if j := strings.IndexByte(s[i:], '\n'); j >= 0 {
				return i + j + 1, nil
			}
			return len(s), nil
		}
	case '/':
		if strings.HasPrefix(s[i:], "/*") {
			if j := strings.Index(s[i+2:], "*/"); j >= 0 {
				return i + 2 + j + 2, nil
			}
			return 0, fmt.Errorf("%w block comment", ErrUnterminated)
		}
	case '$':
		return skipDollarQuoted(s, i)
	}
	return i, nil
}

// skipDelimited skips a quoted run; a doubled delimiter is an escape.
func skipDelimited(s string, i int) (int, error) {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		if s[j] != q {
			continue
		}
		if j+1 < len(s) && s[j+1] == q {
			j++
			continue
		}
		return j + 1, nil
	}
	return 0, fmt.Errorf("%w %c-quoted text", ErrUnterminated, q)
}

// skipDollarQuoted skips $$…$$ and $tag$…$tag$. $1 is a placeholder, not a tag.
func skipDollarQuoted(s string, i int) (int, error) {
	j := i + 1
	if j < len(s) && isDigit(s[j]) {
		return i, nil
	}
	for j < len(s) && isNameByte(s[j]) {
		j++
	}
	if j >= len(s) || s[j] != '$' {
		return i, nil
	}
	tag := s[i : j+1]
	k := strings.Index(s[j+1:], tag)
	if k < 0 {
		return 0, fmt.Errorf("%w dollar-quoted body %s", ErrUnterminated, tag)
	}
	return j + 1 + k + len(tag), nil
}

// parseParamName reads a parameter name at i. Names start with a letter or
// underscore, so Oracle-style :1 is left alone.
func parseParamName(s string, i int) (string, int) {
	if i >= len(s) || isDigit(s[i]) || !isNameByte(s[i]) {
		return "", i
	}
	j := i
	for j < len(s) && isNameByte(s[j]) {
		j++
	}
	return s[i:j], j
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isNameByte(c byte) bool {
	return c == '_' || isDigit(c) || (c|0x20 >= 'a' && c|0x20 <= 'z') || c >= utf8.RuneSelf
}
