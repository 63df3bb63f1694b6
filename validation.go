package main

import (
	"fmt"
	"regexp"
	"strings"
)

type patternDesc struct {
	pattern string
	desc    string
}

type compiledPattern struct {
	re   *regexp.Regexp
	desc string
}

type patternSet []compiledPattern

func compilePatterns(patterns []patternDesc) patternSet {
	set := make(patternSet, len(patterns))
	for i, p := range patterns {
		set[i] = compiledPattern{re: regexp.MustCompile(p.pattern), desc: p.desc}
	}
	return set
}

// compileKeywords matches whole keywords, so that column names such as
// created_at or settings do not trip CREATE or SET.
func compileKeywords(keywords ...string) patternSet {
	patterns := make([]patternDesc, len(keywords))
	for i, kw := range keywords {
		patterns[i] = patternDesc{`(?i)(?:^|[^a-zA-Z_])` + kw + `(?:[^a-zA-Z_]|$)`, kw}
	}
	return compilePatterns(patterns)
}

func (s patternSet) check(sql, message string) error {
	for _, p := range s {
		if p.re.MatchString(sql) {
			return fmt.Errorf("%s: %s", message, p.desc)
		}
	}
	return nil
}

// commonDangerousKeywords are DML/DDL keywords that make a statement a write.
var commonDangerousKeywords = compileKeywords("INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE", "GRANT", "REVOKE")

var setStatementPattern = regexp.MustCompile(`(?i)(?:^|;)\s*SET\b`)

var readPrefixes = []string{"SELECT ", "SHOW ", "DESCRIBE ", "DESC ", "EXPLAIN ", "WITH "}

// validateCommon runs validation checks shared across all database types.
// sqlQuery is the raw query; cleanedSQL has strings/comments removed.
func validateCommon(sqlQuery string, cleanedSQL string) error {
	trimmed := strings.TrimSpace(sqlQuery)
	if trimmed == "" {
		return fmt.Errorf("empty query")
	}

	upper := strings.ToUpper(strings.TrimSpace(cleanedSQL))

	// Must start with an allowed prefix
	hasAllowedPrefix := false
	for _, prefix := range readPrefixes {
		if strings.HasPrefix(upper, prefix) || upper == strings.TrimSpace(prefix) {
			hasAllowedPrefix = true
			break
		}
	}
	if !hasAllowedPrefix {
		return fmt.Errorf("only SELECT, SHOW, DESCRIBE, EXPLAIN and WITH queries are read-only")
	}

	// Check for multiple statements
	if strings.Contains(cleanedSQL, ";") {
		parts := strings.SplitN(cleanedSQL, ";", 2)
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			return fmt.Errorf("multiple statements are not allowed")
		}
	}

	if err := commonDangerousKeywords.check(cleanedSQL, "query contains forbidden keyword"); err != nil {
		return err
	}

	// Block SET statements (but not column/table names containing 'set')
	if setStatementPattern.MatchString(cleanedSQL) {
		return fmt.Errorf("SET statements are not allowed")
	}

	return nil
}
