package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"phenoqc/internal/infra/persistence/memory"
	"phenoqc/internal/infra/persistence/postgres/testutil"
	"phenoqc/internal/infra/persistence/sqlsource"
)

func openStub(t *testing.T) (*sqlsource.Source, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driverName, _ string) (*sql.DB, error) {
		if driverName != defaultDriver {
			t.Fatalf("unexpected driver %s", driverName)
		}
		return db, nil
	})
	t.Cleanup(restore)
	src, err := Open(context.Background(), "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return src, conn
}

func TestOpenAppliesSchema(t *testing.T) {
	src, conn := openStub(t)
	if src.Dialect().Name != "postgres" {
		t.Fatalf("unexpected dialect %s", src.Dialect().Name)
	}
	want := len(sqlsource.SplitStatements(sqlsource.Postgres.DDL))
	if len(conn.Execs) != want {
		t.Fatalf("expected %d ddl statements, got %d", want, len(conn.Execs))
	}
	if !strings.Contains(conn.Execs[0], "JSONB") {
		t.Fatalf("expected postgres ddl, got %q", conn.Execs[0])
	}
}

func TestImportMatchesMemorySource(t *testing.T) {
	ctx := context.Background()
	src, conn := openStub(t)
	conn.Execs = nil
	fixture := memory.Fixture()
	if err := src.Import(ctx, fixture); err != nil {
		t.Fatalf("import: %v", err)
	}
	if conn.Committed != 1 {
		t.Fatalf("expected import to commit once, got %d", conn.Committed)
	}
	for _, q := range conn.Execs {
		if strings.Contains(q, "?") {
			t.Fatalf("unbound placeholder in %q", q)
		}
	}
	if err := src.Import(ctx, fixture); err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if got := len(conn.Tables["measurements"]); got != len(fixture.Records) {
		t.Fatalf("re-import must not duplicate rows, got %d", got)
	}

	mem := memory.NewFromSnapshot(fixture)
	for _, dc := range []struct {
		parameter string
		genotype  int64
	}{
		{memory.FixturePoint, memory.FixtureGenotype},
		{memory.FixtureSeries, memory.FixtureGenotype},
		{memory.FixturePoint, 0},
	} {
		ctxKey := memory.FixtureContext(dc.parameter, dc.genotype)
		want, err := mem.Measurements(ctx, ctxKey)
		if err != nil {
			t.Fatalf("memory measurements: %v", err)
		}
		got, err := src.Measurements(ctx, ctxKey)
		if err != nil {
			t.Fatalf("postgres measurements: %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("%s measurements mismatch (-memory +postgres):\n%s", ctxKey.Key(), diff)
		}
	}
	if !strings.Contains(conn.LastQuery, "group_index IN ($1, $2)") && !strings.Contains(conn.LastQuery, "group_index IN ($1)") {
		t.Fatalf("expected numbered placeholders, got %q", conn.LastQuery)
	}

	p, err := src.Parameter(ctx, memory.FixtureSeries)
	if err != nil || p.Increment == nil {
		t.Fatalf("expected series parameter, got %+v (%v)", p, err)
	}
	cited, err := src.CitedDataPoints(ctx, memory.FixtureIssue)
	if err != nil {
		t.Fatalf("cited: %v", err)
	}
	if len(cited) != 2 || cited[1].AnimalID != 999 {
		t.Fatalf("unexpected citations %+v", cited)
	}
	if !strings.Contains(conn.LastQuery, "issue_id = $1") {
		t.Fatalf("unexpected query %q", conn.LastQuery)
	}
}

func TestImportFailures(t *testing.T) {
	ctx := context.Background()
	src, conn := openStub(t)
	conn.FailTables = map[string]bool{"measurements": true}
	if err := src.Import(ctx, memory.Fixture()); err == nil || !strings.Contains(err.Error(), "insert measurement") {
		t.Fatalf("expected insert error, got %v", err)
	}
	conn.FailTables = nil
	conn.FailCommit = true
	if err := src.Import(ctx, memory.Fixture()); err == nil {
		t.Fatalf("expected commit error")
	}
	if conn.Committed != 0 {
		t.Fatalf("failed imports must not commit")
	}
}

func TestOpenErrors(t *testing.T) {
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, fmt.Errorf("boom") })
	if _, err := Open(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
	restore()

	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore = OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := Open(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping error, got %v", err)
	}
}
