package sqlsource

import (
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	for _, d := range []Dialect{SQLite, Postgres} {
		stmts := SplitStatements(d.DDL)
		if len(stmts) != 5 {
			t.Fatalf("%s: expected 5 statements, got %d", d.Name, len(stmts))
		}
		for _, stmt := range stmts {
			if strings.HasPrefix(stmt, "--") || !strings.HasSuffix(stmt, ";") {
				t.Fatalf("%s: malformed statement %q", d.Name, stmt)
			}
		}
	}
	if got := SplitStatements("SELECT 1;\n-- note\n\nSELECT 2"); len(got) != 2 || got[1] != "SELECT 2" {
		t.Fatalf("unexpected split %q", got)
	}
}

func TestBind(t *testing.T) {
	const q = "SELECT a FROM t WHERE x = ? AND y IN (?, ?)"
	if got := SQLite.Bind(q); got != q {
		t.Fatalf("sqlite bind changed query: %q", got)
	}
	if got := Postgres.Bind(q); got != "SELECT a FROM t WHERE x = $1 AND y IN ($2, $3)" {
		t.Fatalf("postgres bind: %q", got)
	}
}
