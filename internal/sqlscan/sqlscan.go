// Package sqlscan tokenizes SQL text just far enough to tell code apart from
// string literals, quoted identifiers and comments. Keyword checks run on the
// stripped form; script restore uses it to split statements on semicolons.
package sqlscan

import "strings"

// Dialect selects the lexical rules of one database.
type Dialect struct {
	HashComments        bool // # starts a line comment
	BackslashEscapes    bool // \x escapes inside quoted strings
	DollarQuotes        bool // $$...$$ and $tag$...$tag$ strings
	DoubleQuotedStrings bool // "..." is a string rather than an identifier
	BacktickIdents      bool
	BracketIdents       bool
}

var (
	MySQL = Dialect{
		HashComments:        true,
		BackslashEscapes:    true,
		DoubleQuotedStrings: true,
		BacktickIdents:      true,
	}
	Postgres = Dialect{
		DollarQuotes: true,
	}
	SQLite = Dialect{
		BacktickIdents: true,
		BracketIdents:  true,
	}
)

type tokenKind int

const (
	tokCode tokenKind = iota
	tokString
	tokIdent
	tokComment
)

type token struct {
	kind tokenKind
	text string
}

func (d Dialect) scan(sql string) []token {
	var tokens []token
	n := len(sql)
	codeStart := 0
	i := 0

	flush := func(end int) {
		if end > codeStart {
			tokens = append(tokens, token{kind: tokCode, text: sql[codeStart:end]})
		}
	}
	emit := func(kind tokenKind, start, end int) {
		flush(start)
		if end > n {
			end = n
		}
		tokens = append(tokens, token{kind: kind, text: sql[start:end]})
		codeStart = end
		i = end
	}

	for i < n {
		start := i

		// Single-line comment starting with --
		if i+1 < n && sql[i] == '-' && sql[i+1] == '-' {
			for i < n && sql[i] != '\n' {
				i++
			}
			emit(tokComment, start, i)
			continue
		}

		if d.HashComments && sql[i] == '#' {
			for i < n && sql[i] != '\n' {
				i++
			}
			emit(tokComment, start, i)
			continue
		}

		// Multi-line comment /* */
		if i+1 < n && sql[i] == '/' && sql[i+1] == '*' {
			i += 2
			for i+1 < n && !(sql[i] == '*' && sql[i+1] == '/') {
				i++
			}
			emit(tokComment, start, i+2)
			continue
		}

		if d.DollarQuotes && sql[i] == '$' {
			if end, ok := dollarQuoteEnd(sql, i); ok {
				emit(tokString, start, end)
				continue
			}
		}

		if sql[i] == '\'' {
			emit(tokString, start, d.quotedEnd(sql, i, '\''))
			continue
		}

		if sql[i] == '"' {
			kind := tokIdent
			if d.DoubleQuotedStrings {
				kind = tokString
			}
			emit(kind, start, d.quotedEnd(sql, i, '"'))
			continue
		}

		if d.BacktickIdents && sql[i] == '`' {
			emit(tokIdent, start, closingEnd(sql, i, '`'))
			continue
		}

		if d.BracketIdents && sql[i] == '[' {
			emit(tokIdent, start, closingEnd(sql, i, ']'))
			continue
		}

		i++
	}
	flush(n)
	return tokens
}

// quotedEnd returns the index just past the quote that closes the literal
// opened at sql[start]. Doubled quotes are escapes.
func (d Dialect) quotedEnd(sql string, start int, quote byte) int {
	n := len(sql)
	i := start + 1
	for i < n {
		if sql[i] == quote {
			if i+1 < n && sql[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		if d.BackslashEscapes && sql[i] == '\\' && i+1 < n {
			i += 2
			continue
		}
		i++
	}
	return n
}

func closingEnd(sql string, start int, closing byte) int {
	idx := strings.IndexByte(sql[start+1:], closing)
	if idx == -1 {
		return len(sql)
	}
	return start + 1 + idx + 1
}

// dollarQuoteEnd matches $tag$...$tag$ starting at sql[start]. The tag must
// be empty or an identifier so that $1 placeholders are left alone.
func dollarQuoteEnd(sql string, start int) (int, bool) {
	tagEnd := strings.IndexByte(sql[start+1:], '$')
	if tagEnd == -1 {
		return 0, false
	}
	tagName := sql[start+1 : start+1+tagEnd]
	for j := 0; j < len(tagName); j++ {
		c := tagName[j]
		isLetter := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if !isLetter && !(j > 0 && c >= '0' && c <= '9') {
			return 0, false
		}
	}
	tag := sql[start : start+tagEnd+2]
	closeIdx := strings.Index(sql[start+len(tag):], tag)
	if closeIdx == -1 {
		return 0, false
	}
	return start + len(tag) + closeIdx + len(tag), true
}

// Strip replaces string literals with empty literals and comments with a
// single space. Identifiers and code are kept.
func (d Dialect) Strip(sql string) string {
	var result strings.Builder
	for _, tok := range d.scan(sql) {
		switch tok.kind {
		case tokComment:
			result.WriteByte(' ')
		case tokString:
			if tok.text[0] == '"' {
				result.WriteString(`""`)
			} else {
				result.WriteString("''")
			}
		default:
			result.WriteString(tok.text)
		}
	}
	return result.String()
}

// Split breaks a script into statements at semicolons that are outside
// strings, identifiers and comments. Statements are trimmed and returned
// without the terminating semicolon; comment-only fragments are dropped.
func (d Dialect) Split(script string) []string {
	var (
		statements []string
		current    strings.Builder
		hasCode    bool
	)

	finish := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" && hasCode {
			statements = append(statements, stmt)
		}
		current.Reset()
		hasCode = false
	}

	for _, tok := range d.scan(script) {
		if tok.kind != tokCode {
			current.WriteString(tok.text)
			if tok.kind != tokComment {
				hasCode = true
			}
			continue
		}

		rest := tok.text
		for {
			idx := strings.IndexByte(rest, ';')
			if idx == -1 {
				current.WriteString(rest)
				if strings.TrimSpace(rest) != "" {
					hasCode = true
				}
				break
			}
			current.WriteString(rest[:idx])
			if strings.TrimSpace(rest[:idx]) != "" {
				hasCode = true
			}
			finish()
			rest = rest[idx+1:]
		}
	}
	finish()
	return statements
}
