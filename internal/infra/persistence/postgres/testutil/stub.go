// Package testutil provides an in-memory stub database that understands the
// handful of statement shapes the postgres measurement source issues.
package testutil

import (
	"cmp"
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// StubConn records statements and keeps inserted rows per table. Selects
// support equality and IN predicates joined by AND and a single ORDER BY
// column; anything else is ignored.
type StubConn struct {
	mu         sync.Mutex
	Execs      []string
	LastQuery  string
	Tables     map[string][]map[string]any
	FailPing   bool
	FailBegin  bool
	FailCommit bool
	FailTables map[string]bool
	RowsErr    error
	Committed  int
}

var seq atomic.Int64

// NewStubDB registers a sql.DB backed by a fresh stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]map[string]any)}
	name := fmt.Sprintf("stubpg%d", seq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	return &stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "INSERT INTO") {
		return driver.RowsAffected(0), nil
	}
	ins, err := parseInsert(query)
	if err != nil {
		return nil, err
	}
	if c.FailTables[ins.table] {
		return nil, fmt.Errorf("exec fail for %s", ins.table)
	}
	if len(ins.cols) != len(args) {
		return nil, fmt.Errorf("column/arg mismatch for %s", ins.table)
	}
	row := make(map[string]any, len(ins.cols))
	for i, col := range ins.cols {
		row[col] = args[i].Value
	}
	rows := c.Tables[ins.table]
	if len(ins.conflict) > 0 {
		for i, existing := range rows {
			if !sameKey(existing, row, ins.conflict) {
				continue
			}
			if ins.doNothing {
				return driver.RowsAffected(0), nil
			}
			rows[i] = row
			return driver.RowsAffected(1), nil
		}
	}
	c.Tables[ins.table] = append(rows, row)
	return driver.RowsAffected(1), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastQuery = query
	sel, err := parseSelect(query)
	if err != nil {
		return nil, err
	}
	if c.FailTables[sel.table] {
		return nil, fmt.Errorf("query fail for %s", sel.table)
	}
	var matched []map[string]any
	for _, row := range c.Tables[sel.table] {
		ok, err := sel.matches(row, args)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, row)
		}
	}
	if sel.orderBy != "" {
		slices.SortStableFunc(matched, func(a, b map[string]any) int { return compareValues(a[sel.orderBy], b[sel.orderBy]) })
	}
	values := make([][]driver.Value, 0, len(matched))
	for _, row := range matched {
		vals := make([]driver.Value, len(sel.cols))
		for i, col := range sel.cols {
			vals[i] = row[col]
		}
		values = append(values, vals)
	}
	return &stubRows{cols: sel.cols, rows: values, err: c.RowsErr}, nil
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	if t.conn.FailCommit {
		return fmt.Errorf("commit fail")
	}
	t.conn.mu.Lock()
	t.conn.Committed++
	t.conn.mu.Unlock()
	return nil
}

func (t *stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

type insertStmt struct {
	table     string
	cols      []string
	conflict  []string
	doNothing bool
}

func parseInsert(query string) (insertStmt, error) {
	up := strings.ToUpper(query)
	intoIdx := strings.Index(up, "INTO ")
	if intoIdx == -1 {
		return insertStmt{}, fmt.Errorf("cannot parse insert: %s", query)
	}
	rest := strings.TrimSpace(query[intoIdx+len("INTO "):])
	open := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if open == -1 || closeIdx == -1 || closeIdx <= open {
		return insertStmt{}, fmt.Errorf("cannot parse insert: %s", query)
	}
	ins := insertStmt{
		table: strings.ToLower(strings.TrimSpace(rest[:open])),
		cols:  splitColumns(rest[open+1 : closeIdx]),
	}
	if i := strings.Index(up, "ON CONFLICT ("); i != -1 {
		target := query[i+len("ON CONFLICT ("):]
		end := strings.Index(target, ")")
		if end == -1 {
			return insertStmt{}, fmt.Errorf("cannot parse conflict target: %s", query)
		}
		ins.conflict = splitColumns(target[:end])
		ins.doNothing = strings.Contains(up, "DO NOTHING")
	}
	return ins, nil
}

type predicate struct {
	col  string
	args []int
}

type selectStmt struct {
	table   string
	cols    []string
	where   []predicate
	orderBy string
}

func (s selectStmt) matches(row map[string]any, args []driver.NamedValue) (bool, error) {
	for _, p := range s.where {
		hit := false
		for _, n := range p.args {
			if n < 1 || n > len(args) {
				return false, fmt.Errorf("placeholder $%d out of range", n)
			}
			if fmt.Sprint(row[p.col]) == fmt.Sprint(args[n-1].Value) {
				hit = true
				break
			}
		}
		if !hit {
			return false, nil
		}
	}
	return true, nil
}

func parseSelect(query string) (selectStmt, error) {
	lower := strings.ToLower(query)
	if !strings.HasPrefix(lower, "select ") {
		return selectStmt{}, fmt.Errorf("cannot parse select: %s", query)
	}
	fromIdx := strings.Index(lower, " from ")
	if fromIdx == -1 {
		return selectStmt{}, fmt.Errorf("cannot parse select: %s", query)
	}
	sel := selectStmt{cols: splitColumns(query[len("select "):fromIdx])}
	rest := strings.TrimSpace(query[fromIdx+len(" from "):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return selectStmt{}, fmt.Errorf("cannot parse select: %s", query)
	}
	sel.table = strings.ToLower(fields[0])
	rest = strings.TrimSpace(rest[len(fields[0]):])
	lowerRest := strings.ToLower(rest)
	if i := strings.Index(lowerRest, "order by "); i != -1 {
		sel.orderBy = strings.ToLower(strings.Fields(rest[i+len("order by "):])[0])
		rest, lowerRest = strings.TrimSpace(rest[:i]), strings.TrimSpace(lowerRest[:i])
	}
	if !strings.HasPrefix(lowerRest, "where ") {
		return sel, nil
	}
	for _, clause := range splitAnd(rest[len("where "):]) {
		p, err := parsePredicate(clause)
		if err != nil {
			return selectStmt{}, fmt.Errorf("%w in %s", err, query)
		}
		sel.where = append(sel.where, p)
	}
	return sel, nil
}

func splitAnd(where string) []string {
	var out []string
	lower := strings.ToLower(where)
	for {
		i := strings.Index(lower, " and ")
		if i == -1 {
			return append(out, strings.TrimSpace(where))
		}
		out = append(out, strings.TrimSpace(where[:i]))
		where, lower = where[i+len(" and "):], lower[i+len(" and "):]
	}
}

func parsePredicate(clause string) (predicate, error) {
	lower := strings.ToLower(clause)
	if i := strings.Index(lower, " in ("); i != -1 {
		end := strings.LastIndex(clause, ")")
		if end <= i {
			return predicate{}, fmt.Errorf("cannot parse predicate %q", clause)
		}
		p := predicate{col: strings.ToLower(strings.TrimSpace(clause[:i]))}
		for _, ph := range splitColumns(clause[i+len(" in (") : end]) {
			n, err := placeholder(ph)
			if err != nil {
				return predicate{}, err
			}
			p.args = append(p.args, n)
		}
		return p, nil
	}
	parts := strings.SplitN(clause, "=", 2)
	if len(parts) != 2 {
		return predicate{}, fmt.Errorf("cannot parse predicate %q", clause)
	}
	n, err := placeholder(strings.TrimSpace(parts[1]))
	if err != nil {
		return predicate{}, err
	}
	return predicate{col: strings.ToLower(strings.TrimSpace(parts[0])), args: []int{n}}, nil
}

func placeholder(s string) (int, error) {
	if !strings.HasPrefix(s, "$") {
		return 0, fmt.Errorf("expected numbered placeholder, got %q", s)
	}
	return strconv.Atoi(s[1:])
}

func sameKey(a, b map[string]any, cols []string) bool {
	for _, col := range cols {
		if fmt.Sprint(a[col]) != fmt.Sprint(b[col]) {
			return false
		}
	}
	return true
}

func compareValues(a, b any) int {
	ai, aok := a.(int64)
	bi, bok := b.(int64)
	if aok && bok {
		return cmp.Compare(ai, bi)
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(part)))
	}
	return out
}
