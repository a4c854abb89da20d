package testutil

import (
	"context"
	"database/sql/driver"
	"io"
	"testing"
)

func TestStubDBStoresAndQueriesRows(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	insert := "INSERT INTO cited_data_points (issue_id, measurement_id, animal_id) VALUES ($1, $2, $3) ON CONFLICT (issue_id, measurement_id) DO NOTHING"
	for _, args := range [][]any{{int64(1), int64(20), int64(200)}, {int64(1), int64(10), int64(100)}, {int64(2), int64(30), int64(300)}, {int64(1), int64(10), int64(999)}} {
		named := make([]driver.NamedValue, len(args))
		for i, a := range args {
			named[i] = driver.NamedValue{Ordinal: i + 1, Value: a}
		}
		if _, err := conn.ExecContext(ctx, insert, named); err != nil {
			t.Fatalf("ExecContext insert: %v", err)
		}
	}
	if got := len(conn.Tables["cited_data_points"]); got != 3 {
		t.Fatalf("expected conflicting insert to be ignored, got %d rows", got)
	}

	rows, err := conn.QueryContext(ctx, "SELECT measurement_id, animal_id FROM cited_data_points WHERE issue_id = $1 ORDER BY measurement_id",
		[]driver.NamedValue{{Ordinal: 1, Value: int64(1)}})
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	defer func() { _ = rows.Close() }()

	dest := make([]driver.Value, 2)
	var got [][2]any
	for {
		if err := rows.Next(dest); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, [2]any{dest[0], dest[1]})
	}
	if len(got) != 2 || got[0][0] != int64(10) || got[0][1] != int64(100) || got[1][0] != int64(20) {
		t.Fatalf("unexpected rows %v", got)
	}
}

func TestStubDBUpsertAndInPredicate(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	upsert := "INSERT INTO metadata_groups (group_index, payload) VALUES ($1, $2) ON CONFLICT (group_index) DO UPDATE SET payload = excluded.payload"
	for _, v := range []driver.NamedValue{{Value: "a"}, {Value: "b"}} {
		if _, err := conn.ExecContext(ctx, upsert, []driver.NamedValue{{Ordinal: 1, Value: int64(1)}, {Ordinal: 2, Value: v.Value}}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if rows := conn.Tables["metadata_groups"]; len(rows) != 1 || rows[0]["payload"] != "b" {
		t.Fatalf("expected upsert to replace the row, got %v", rows)
	}

	rows, err := conn.QueryContext(ctx, "SELECT payload FROM metadata_groups WHERE group_index IN ($1, $2)",
		[]driver.NamedValue{{Ordinal: 1, Value: int64(5)}, {Ordinal: 2, Value: int64(1)}})
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	dest := make([]driver.Value, 1)
	if err := rows.Next(dest); err != nil || dest[0] != "b" {
		t.Fatalf("expected matching row, got %v (%v)", dest, err)
	}

	if _, err := conn.QueryContext(ctx, "SELECT payload FROM metadata_groups WHERE group_index = ?", nil); err == nil {
		t.Fatalf("expected unbound placeholders to be rejected")
	}
}

func TestStubDBFailures(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	conn.FailPing = true
	if err := conn.Ping(ctx); err == nil {
		t.Fatalf("expected ping failure")
	}
	conn.FailBegin = true
	if _, err := conn.Begin(); err == nil {
		t.Fatalf("expected begin failure")
	}
	conn.FailTables = map[string]bool{"parameters": true}
	if _, err := conn.QueryContext(ctx, "SELECT payload FROM parameters", nil); err == nil {
		t.Fatalf("expected query failure")
	}
}
