package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/gridrun/pkg/frame"
	"github.com/GoSim-25-26J-441/gridrun/pkg/record"
)

// IDColumn is the auto-increment primary key every result table carries.
const IDColumn = "id"

// ColumnType returns the SQLite column type used to store v. Values without
// a native SQLite representation are stored as JSON text. Insert never
// creates a column from a nil value.
func ColumnType(v any) string {
	switch v.(type) {
	case bool:
		return "BOOLEAN"
	case string:
		return "TEXT"
	case []byte:
		return "BLOB"
	case time.Time:
		return "TIMESTAMP"
	case nil:
		return "TEXT"
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "INTEGER"
	case reflect.Float32, reflect.Float64:
		return "REAL"
	}
	return "TEXT"
}

// sqlValue converts a record value to a database argument.
func sqlValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, bool, string, []byte, time.Time,
		int, int8, int16, int32, int64,
		uint8, uint16, uint32,
		float32, float64:
		return val, nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d", ErrIntegerOverflow, val)
		}
		return int64(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d", ErrIntegerOverflow, val)
		}
		return int64(val), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Insert appends rec to table. The table is created on first use, and any
// field without a column gets one typed after its first non-nil value.
// Nil fields are written as NULL.
func (s *Store) Insert(table string, rec *record.Record) (int64, error) {
	if err := checkTableName(table); err != nil {
		return 0, err
	}
	if err := checkFields(rec); err != nil {
		return 0, err
	}

	var names []string
	var values, args []any
	for name, v := range rec.All() {
		if v == nil {
			continue
		}
		arg, err := sqlValue(v)
		if err != nil {
			return 0, fmt.Errorf("field %s: %w", name, err)
		}
		names = append(names, name)
		values = append(values, v)
		args = append(args, arg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := ensureTable(tx, table, names, values); err != nil {
		return 0, err
	}

	var query string
	if len(names) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quoteIdent(table))
	} else {
		cols := make([]string, len(names))
		for i, name := range names {
			cols[i] = quoteIdent(name)
		}
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdent(table),
			strings.Join(cols, ", "),
			strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", "),
		)
	}
	res, err := tx.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit insert into %s: %w", table, err)
	}
	return id, nil
}

// checkFields rejects field names that would collide in SQLite, where
// column names are case-insensitive.
func checkFields(rec *record.Record) error {
	seen := make(map[string]string, rec.Len())
	for _, name := range rec.Keys() {
		if strings.EqualFold(name, IDColumn) {
			return fmt.Errorf("%w: %q holds the row id", ErrReservedField, name)
		}
		key := strings.ToLower(name)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: %q and %q differ only in case", ErrDuplicateField, prev, name)
		}
		seen[key] = name
	}
	return nil
}

func ensureTable(tx *sql.Tx, table string, names []string, values []any) error {
	_, err := tx.Exec(fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s INTEGER PRIMARY KEY AUTOINCREMENT)",
		quoteIdent(table), quoteIdent(IDColumn),
	))
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	existing, err := columnTypes(tx, table)
	if err != nil {
		return err
	}
	for i, name := range names {
		if _, ok := existing[strings.ToLower(name)]; ok {
			continue
		}
		_, err := tx.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
			quoteIdent(table), quoteIdent(name), ColumnType(values[i])))
		if err != nil {
			return fmt.Errorf("failed to add column %s to %s: %w", name, table, err)
		}
	}
	return nil
}

type queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

// columnTypes maps lower-cased column names to their declared types.
// SQLite column names are case-insensitive.
func columnTypes(q queryer, table string) (map[string]string, error) {
	rows, err := q.Query(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		out[strings.ToLower(name)] = strings.ToUpper(ctype)
	}
	return out, rows.Err()
}

// HasTable reports whether a result table exists.
func (s *Store) HasTable(name string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0 && checkTableName(name) == nil, nil
}

// Tables lists the result tables, sorted by name.
func (s *Store) Tables() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if checkTableName(name) == nil {
			out = append(out, name)
		}
	}
	return out, rows.Err()
}

// Drop removes a result table. Dropping a missing table is not an error.
func (s *Store) Drop(name string) error {
	if err := checkTableName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(name))); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	return nil
}

// Frame returns every row of table ordered by id. A table that does not
// exist yet yields an empty frame.
func (s *Store) Frame(table string) (*frame.Frame, error) {
	ok, err := s.HasTable(table)
	if err != nil {
		return nil, err
	}
	if !ok {
		return frame.FromRecords(nil), nil
	}
	return s.readTable(table)
}

// GetTable returns every row of an existing table.
func (s *Store) GetTable(name string) (*frame.Frame, error) {
	ok, err := s.HasTable(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return s.readTable(name)
}

func (s *Store) readTable(table string) (*frame.Frame, error) {
	types, err := columnTypes(s.db, table)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(fmt.Sprintf("SELECT * FROM %s ORDER BY %s",
		quoteIdent(table), quoteIdent(IDColumn)))
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []*record.Record
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := record.New()
		for i, c := range cols {
			rec.Set(c, fromSQL(values[i], types[strings.ToLower(c)]))
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return frame.FromRecords(records), nil
}

// fromSQL restores the Go value of a cell from its declared column type.
func fromSQL(v any, ctype string) any {
	switch val := v.(type) {
	case int64:
		if ctype == "BOOLEAN" {
			return val != 0
		}
	case []byte:
		if ctype != "BLOB" {
			return string(val)
		}
	case string:
		if ctype == "TIMESTAMP" {
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, val); err == nil {
					return t
				}
			}
		}
	}
	return v
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}
