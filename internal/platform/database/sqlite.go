package database

import (
	"fmt"
	"strings"

	"github.com/imamik/opspipe/internal/target"
)

// SQLite implements Dialect for modernc.org/sqlite.
type SQLite struct{}

// Name implements Dialect.
func (SQLite) Name() string { return string(target.DriverSQLite) }

// Statements implements Dialect. The batch is split on semicolons outside
// literals, comments and trigger bodies, the way the sqlite3 shell decides a
// statement is complete. Syntax errors surface when the statement runs.
func (SQLite) Statements(batch string) ([]string, error) {
	stmts := splitSQLite(batch)
	for i, stmt := range stmts {
		if sqliteTransactionControl[firstKeyword(stmt)] {
			return nil, fmt.Errorf("statement %d: %w", i+1, ErrTransactionControl)
		}
	}
	return stmts, nil
}

// QuoteIdentifier implements Dialect.
func (SQLite) QuoteIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

// DropTableIfExists implements Dialect. SQLite has no CASCADE; dependent
// foreign keys are not enforced unless the pragma is on. schema is ignored,
// a qualified table names an attached database.
func (s SQLite) DropTableIfExists(_, table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", s.QuoteIdentifier(table))
}

// ListTablesQuery implements Dialect. schema is ignored.
func (SQLite) ListTablesQuery(string) (string, []any) {
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name", nil
}

// CountRowsQuery implements Dialect. schema is ignored.
func (s SQLite) CountRowsQuery(_, table string) string {
	return "SELECT COUNT(*) FROM " + s.QuoteIdentifier(table)
}

// CountsRows implements Dialect. sqlite3_changes keeps the count of the last
// data change, so DDL would repeat it.
func (SQLite) CountsRows(stmt string) bool {
	switch firstKeyword(stmt) {
	case "INSERT", "UPDATE", "DELETE", "REPLACE":
		return true
	}
	return false
}

// IsUndefinedTable implements Dialect.
func (SQLite) IsUndefinedTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

var sqliteTransactionControl = map[string]bool{
	"BEGIN":     true,
	"COMMIT":    true,
	"END":       true,
	"ROLLBACK":  true,
	"SAVEPOINT": true,
	"RELEASE":   true,
}

// splitSQLite splits a batch into statements. Inside CREATE TRIGGER a
// semicolon only ends the statement when it follows END.
func splitSQLite(batch string) []string {
	var (
		out     []string
		start   int
		words   []string
		last    string
		content bool
	)
	for i := 0; i < len(batch); i++ {
		c := batch[i]
		switch {
		case strings.HasPrefix(batch[i:], "--"):
			for i < len(batch) && batch[i] != '\n' {
				i++
			}
		case strings.HasPrefix(batch[i:], "/*"):
			end := strings.Index(batch[i+2:], "*/")
			if end < 0 {
				i = len(batch)
			} else {
				i += end + 3
			}
		case c == '\'' || c == '"' || c == '`':
			content, last = true, ""
			i = closingQuote(batch, i)
		case c == '[':
			content, last = true, ""
			for i < len(batch) && batch[i] != ']' {
				i++
			}
		case isWordByte(c):
			j := i
			for j < len(batch) && isWordByte(batch[j]) {
				j++
			}
			content, last = true, strings.ToUpper(batch[i:j])
			if len(words) < 3 {
				words = append(words, last)
			}
			i = j - 1
		case c == ';':
			if isTrigger(words) && last != "END" {
				last = ""
				continue
			}
			if content {
				out = append(out, strings.TrimSpace(batch[start:i]))
			}
			start, words, last, content = i+1, nil, "", false
		case !isSpaceByte(c):
			content, last = true, ""
		}
	}
	if content {
		out = append(out, strings.TrimSpace(batch[start:]))
	}
	return out
}

// closingQuote returns the index of the quote closing the literal opened at
// open. A doubled quote is an escaped one.
func closingQuote(s string, open int) int {
	q := s[open]
	for j := open + 1; j < len(s); j++ {
		if s[j] != q {
			continue
		}
		if j+1 < len(s) && s[j+1] == q {
			j++
			continue
		}
		return j
	}
	return len(s)
}

func isTrigger(words []string) bool {
	if len(words) < 2 || words[0] != "CREATE" {
		return false
	}
	if words[1] == "TRIGGER" {
		return true
	}
	return len(words) == 3 && (words[1] == "TEMP" || words[1] == "TEMPORARY") && words[2] == "TRIGGER"
}

// firstKeyword returns the first word of stmt upper-cased, skipping comments.
func firstKeyword(stmt string) string {
	for i := 0; i < len(stmt); i++ {
		c := stmt[i]
		switch {
		case strings.HasPrefix(stmt[i:], "--"):
			for i < len(stmt) && stmt[i] != '\n' {
				i++
			}
		case strings.HasPrefix(stmt[i:], "/*"):
			end := strings.Index(stmt[i+2:], "*/")
			if end < 0 {
				return ""
			}
			i += end + 3
		case isWordByte(c):
			j := i
			for j < len(stmt) && isWordByte(stmt[j]) {
				j++
			}
			return strings.ToUpper(stmt[i:j])
		case !isSpaceByte(c):
			return ""
		}
	}
	return ""
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
