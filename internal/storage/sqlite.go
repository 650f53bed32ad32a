package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

const memoryDSN = ":memory:"

var operators = map[string]bool{
	"=": true, "!=": true, "<>": true, "<": true, "<=": true, ">": true, ">=": true,
	"LIKE": true, "NOT LIKE": true,
}

type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type where struct {
	column   string
	operator string
	value    any
}

type query struct {
	columns []string
	joins   []string
	wheres  []where
	orders  []string
	limit   int
	offset  int
	err     error
}

// SQLite is a Storage over a database/sql SQLite handle.
type SQLite struct {
	db     *sql.DB
	conn   conn
	table  string
	q      query
	last   *Grammar
	logger logger.Logger
}

// OpenSQLite opens the database at path. ":memory:" is kept on a
// single connection so every query sees the same database.
func OpenSQLite(path string) (*SQLite, error) {
	errFactory := errors.New()

	dsn := path
	if path != memoryDSN {
		dsn = path + "?_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.Wrap(ErrOpenFailed, err)
	}
	if path == memoryDSN {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrOpenFailed, err)
	}

	return NewSQLite(db), nil
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db, conn: db, logger: logger.Get("storage")}
}

// DB returns the underlying handle.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) New() Storage {
	return &SQLite{db: s.db, conn: s.conn, logger: s.logger}
}

func (s *SQLite) Table(name string) Storage {
	s.table = name
	return s
}

func (s *SQLite) TableName() string {
	return s.table
}

func (s *SQLite) Select(columns ...string) Storage {
	s.q.columns = append(s.q.columns, columns...)
	return s
}

func (s *SQLite) Where(column, operator string, value any) Storage {
	op := strings.ToUpper(strings.TrimSpace(operator))
	if !operators[op] {
		s.q.err = errors.New().WithMessage(ErrInvalidQuery, fmt.Sprintf("unsupported operator %q", operator))
		return s
	}
	s.q.wheres = append(s.q.wheres, where{column: column, operator: op, value: value})
	return s
}

func (s *SQLite) Join(table, first, operator, second string) Storage {
	return s.join("JOIN", table, first, operator, second)
}

func (s *SQLite) LeftJoin(table, first, operator, second string) Storage {
	return s.join("LEFT JOIN", table, first, operator, second)
}

func (s *SQLite) join(kind, table, first, operator, second string) Storage {
	op := strings.TrimSpace(operator)
	if !operators[op] {
		s.q.err = errors.New().WithMessage(ErrInvalidQuery, fmt.Sprintf("unsupported operator %q", operator))
		return s
	}
	s.q.joins = append(s.q.joins, fmt.Sprintf("%s %s ON %s %s %s",
		kind, quote(table), quote(first), op, quote(second)))
	return s
}

func (s *SQLite) OrderBy(column, direction string) Storage {
	dir := "ASC"
	if strings.EqualFold(direction, "desc") {
		dir = "DESC"
	}
	s.q.orders = append(s.q.orders, quote(column)+" "+dir)
	return s
}

func (s *SQLite) Limit(count, offset int) Storage {
	s.q.limit = count
	s.q.offset = offset
	return s
}

func (s *SQLite) Grammar() *Grammar {
	return s.last
}

// Transaction runs fn against a storage bound to one transaction.
// Nested calls reuse the outer transaction.
func (s *SQLite) Transaction(ctx context.Context, fn func(tx Storage) error) error {
	errFactory := errors.New()

	if _, ok := s.conn.(*sql.Tx); ok {
		return fn(s.New())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errFactory.Wrap(ErrTransaction, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				s.logger.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if err := fn(&SQLite{db: s.db, conn: tx, table: s.table, logger: s.logger}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransaction, err)
	}
	committed = true

	return nil
}

func (s *SQLite) Find(ctx context.Context, id any) (Item, error) {
	return s.Where("id", "=", id).First(ctx)
}

func (s *SQLite) First(ctx context.Context) (Item, error) {
	s.q.limit = 1
	items, err := s.Get(ctx)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return items[0], nil
}

func (s *SQLite) Get(ctx context.Context) ([]Item, error) {
	g, err := s.prepare(s.selectSQL(s.q.columns, true))
	if err != nil {
		return nil, err
	}
	return s.query(ctx, g)
}

func (s *SQLite) Value(ctx context.Context, column string) (any, error) {
	s.q.limit = 1
	g, err := s.prepare(s.selectSQL([]string{column}, true))
	if err != nil {
		return nil, err
	}

	items, err := s.query(ctx, g)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	for _, v := range items[0] {
		return v, nil
	}
	return nil, nil
}

// Column returns the values of column keyed by key, or by position when
// key is empty.
func (s *SQLite) Column(ctx context.Context, column, key string) (Item, error) {
	columns := []string{column}
	if key != "" {
		columns = append(columns, key)
	}

	g, err := s.prepare(s.selectSQL(columns, true))
	if err != nil {
		return nil, err
	}
	items, err := s.query(ctx, g)
	if err != nil {
		return nil, err
	}

	out := make(Item, len(items))
	col, k := lastPart(column), lastPart(key)
	for i, item := range items {
		name := fmt.Sprint(i)
		if key != "" {
			name = fmt.Sprint(item[k])
		}
		out[name] = item[col]
	}
	return out, nil
}

func (s *SQLite) Count(ctx context.Context) (int, error) {
	g, err := s.prepare(s.selectSQL([]string{"COUNT(*)"}, false))
	if err != nil {
		return 0, err
	}

	items, err := s.query(ctx, g)
	if err != nil || len(items) == 0 {
		return 0, err
	}
	for _, v := range items[0] {
		n, _ := v.(int64)
		return int(n), nil
	}
	return 0, nil
}

func (s *SQLite) Insert(ctx context.Context, item Item) (Item, error) {
	columns := sortedKeys(item)
	if len(columns) == 0 {
		return nil, errors.New().WithMessage(ErrInvalidQuery, "nothing to insert")
	}

	bindings := make([]any, 0, len(columns))
	for _, c := range columns {
		bindings = append(bindings, item[c])
	}

	g, err := s.prepareWith(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(s.table), quoteAll(columns), placeholders(len(columns))), bindings, item)
	if err != nil {
		return nil, err
	}

	res, err := s.exec(ctx, g)
	if err != nil {
		return nil, err
	}

	inserted := make(Item, len(item)+1)
	for k, v := range item {
		inserted[k] = v
	}
	if _, ok := inserted["id"]; !ok {
		if id, err := res.LastInsertId(); err == nil {
			inserted["id"] = id
		}
	}
	return inserted, nil
}

func (s *SQLite) InsertItems(ctx context.Context, items []Item) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	columns := sortedKeys(items[0])
	rows := make([]string, 0, len(items))
	bindings := make([]any, 0, len(items)*len(columns))
	for _, item := range items {
		rows = append(rows, "("+placeholders(len(columns))+")")
		for _, c := range columns {
			bindings = append(bindings, item[c])
		}
	}

	g, err := s.prepareWith(fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		quote(s.table), quoteAll(columns), strings.Join(rows, ", ")), bindings, items[0])
	if err != nil {
		return 0, err
	}

	res, err := s.exec(ctx, g)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLite) Update(ctx context.Context, item Item) (int64, error) {
	columns := sortedKeys(item)
	if len(columns) == 0 {
		return 0, errors.New().WithMessage(ErrInvalidQuery, "nothing to update")
	}

	sets := make([]string, 0, len(columns))
	bindings := make([]any, 0, len(columns))
	for _, c := range columns {
		sets = append(sets, quote(c)+" = ?")
		bindings = append(bindings, item[c])
	}

	statement := fmt.Sprintf("UPDATE %s SET %s", quote(s.table), strings.Join(sets, ", "))
	whereSQL, whereBindings := s.whereSQL()
	g, err := s.prepareWith(statement+whereSQL, append(bindings, whereBindings...), item)
	if err != nil {
		return 0, err
	}

	res, err := s.exec(ctx, g)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateOrInsert updates the rows matching attributes, or inserts the
// merged attributes and item when none match.
func (s *SQLite) UpdateOrInsert(ctx context.Context, attributes, item Item) (Item, error) {
	matching := func() Storage {
		st := s.New().Table(s.table)
		for _, c := range sortedKeys(attributes) {
			st.Where(c, "=", attributes[c])
		}
		return st
	}

	n, err := matching().Count(ctx)
	if err != nil {
		return nil, err
	}

	merged := make(Item, len(attributes)+len(item))
	for k, v := range attributes {
		merged[k] = v
	}
	for k, v := range item {
		merged[k] = v
	}

	if n > 0 {
		st := matching().(*SQLite)
		_, err := st.Update(ctx, item)
		s.last = st.last
		return merged, err
	}

	st := s.New().Table(s.table).(*SQLite)
	inserted, err := st.Insert(ctx, merged)
	s.last = st.last
	return inserted, err
}

func (s *SQLite) Delete(ctx context.Context) (int64, error) {
	whereSQL, bindings := s.whereSQL()
	g, err := s.prepareWith("DELETE FROM "+quote(s.table)+whereSQL, bindings, nil)
	if err != nil {
		return 0, err
	}

	res, err := s.exec(ctx, g)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLite) selectSQL(columns []string, ordered bool) string {
	cols := "*"
	if len(columns) > 0 {
		cols = quoteAll(columns)
	}

	var b strings.Builder
	b.WriteString("SELECT " + cols + " FROM " + quote(s.table))
	for _, j := range s.q.joins {
		b.WriteString(" " + j)
	}
	whereSQL, _ := s.whereSQL()
	b.WriteString(whereSQL)
	if ordered {
		if len(s.q.orders) > 0 {
			b.WriteString(" ORDER BY " + strings.Join(s.q.orders, ", "))
		}
		if s.q.limit > 0 {
			fmt.Fprintf(&b, " LIMIT %d", s.q.limit)
			if s.q.offset > 0 {
				fmt.Fprintf(&b, " OFFSET %d", s.q.offset)
			}
		}
	}
	return b.String()
}

func (s *SQLite) whereSQL() (string, []any) {
	if len(s.q.wheres) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(s.q.wheres))
	bindings := make([]any, 0, len(s.q.wheres))
	for _, w := range s.q.wheres {
		parts = append(parts, quote(w.column)+" "+w.operator+" ?")
		bindings = append(bindings, w.value)
	}
	return " WHERE " + strings.Join(parts, " AND "), bindings
}

func (s *SQLite) prepare(statement string) (*Grammar, error) {
	_, bindings := s.whereSQL()
	return s.prepareWith(statement, bindings, nil)
}

// prepareWith records the grammar and resets the builder.
func (s *SQLite) prepareWith(statement string, bindings []any, item Item) (*Grammar, error) {
	err := s.q.err
	if err == nil && s.table == "" {
		err = errors.New().WithMessage(ErrInvalidQuery, "no table selected")
	}
	s.q = query{}
	if err != nil {
		return nil, err
	}

	if bindings == nil {
		bindings = []any{}
	}
	s.last = &Grammar{Statement: statement, Bindings: bindings, Item: item}
	return s.last, nil
}

func (s *SQLite) exec(ctx context.Context, g *Grammar) (sql.Result, error) {
	res, err := s.conn.ExecContext(ctx, g.Statement, g.Bindings...)
	if err != nil {
		return nil, s.queryError(g, err)
	}
	return res, nil
}

func (s *SQLite) query(ctx context.Context, g *Grammar) ([]Item, error) {
	rows, err := s.conn.QueryContext(ctx, g.Statement, g.Bindings...)
	if err != nil {
		return nil, s.queryError(g, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, s.queryError(g, err)
	}

	var items []Item
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, s.queryError(g, err)
		}

		item := make(Item, len(columns))
		for i, c := range columns {
			if b, ok := values[i].([]byte); ok {
				item[c] = string(b)
				continue
			}
			item[c] = values[i]
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, s.queryError(g, err)
	}
	return items, nil
}

func (s *SQLite) queryError(g *Grammar, err error) error {
	return errors.New().WithData(ErrQueryFailed, struct {
		Statement string
		Error     string
	}{
		Statement: g.Statement,
		Error:     err.Error(),
	})
}

// quote quotes an identifier, keeping "*" and function calls as is.
func quote(ident string) string {
	ident = strings.TrimSpace(ident)
	if ident == "*" || strings.Contains(ident, "(") {
		return ident
	}

	parts := strings.Split(ident, ".")
	for i, p := range parts {
		if p == "*" {
			continue
		}
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

func quoteAll(idents []string) string {
	quoted := make([]string, len(idents))
	for i, id := range idents {
		quoted[i] = quote(id)
	}
	return strings.Join(quoted, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func sortedKeys(item Item) []string {
	keys := make([]string, 0, len(item))
	for k := range item {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lastPart(ident string) string {
	if i := strings.LastIndex(ident, "."); i >= 0 {
		return ident[i+1:]
	}
	return ident
}
