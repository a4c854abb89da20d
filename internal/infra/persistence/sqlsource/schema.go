// Package sqlsource reads measurement sets from the normalized SQL schema
// shared by the SQLite and Postgres sources.
package sqlsource

import (
	"bufio"
	_ "embed"
	"strconv"
	"strings"
)

var (
	//go:embed sqlite.sql
	sqliteDDL string
	//go:embed postgres.sql
	postgresDDL string
)

// Dialect captures the differences between SQL engines.
type Dialect struct {
	Name string
	DDL  string
	// Placeholder renders the n-th (1 based) bind parameter.
	Placeholder func(n int) string
}

// SQLite uses positional question marks.
var SQLite = Dialect{
	Name:        "sqlite",
	DDL:         sqliteDDL,
	Placeholder: func(int) string { return "?" },
}

// Postgres uses numbered parameters.
var Postgres = Dialect{
	Name:        "postgres",
	DDL:         postgresDDL,
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
}

// Bind rewrites every '?' in query into the dialect's placeholder.
func (d Dialect) Bind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SplitStatements splits a semicolon terminated script into statements,
// dropping blank lines and "--" comments.
func SplitStatements(ddl string) []string {
	var stmts []string
	var cur strings.Builder
	sc := bufio.NewScanner(strings.NewReader(ddl))
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			stmts = append(stmts, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
	}
	if tail := strings.TrimSpace(cur.String()); tail != "" {
		stmts = append(stmts, tail)
	}
	return stmts
}
