package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mattjoyce/hermes/internal/storage"
)

// SQLite is a Store persisted in a single SQLite file.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the SQLite-backed store at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		return nil, &Error{Op: "open-db", Path: path, Err: err}
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func parentOf(path string) string {
	if i := strings.LastIndex(path, `\`); i >= 0 {
		return path[:i]
	}
	return ""
}

func (s *SQLite) CreateKey(ctx context.Context, path string) (Key, error) {
	path = Clean(path)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap("create", path, "", fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	parts := strings.Split(path, `\`)
	ts := now()
	for i := range parts {
		p := strings.Join(parts[:i+1], `\`)
		_, err := tx.ExecContext(ctx, `
INSERT INTO store_keys(canon, path, parent, created_at)
VALUES(?, ?, ?, ?)
ON CONFLICT(canon) DO NOTHING;
`, canonical(p), p, canonical(parentOf(p)), ts)
		if err != nil {
			return nil, wrap("create", path, "", fmt.Errorf("insert key %q: %w", p, err))
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap("create", path, "", fmt.Errorf("commit tx: %w", err))
	}
	return &sqliteKey{db: s.db, path: path}, nil
}

func (s *SQLite) OpenKey(ctx context.Context, path string) (Key, error) {
	path = Clean(path)
	ok, err := keyExists(ctx, s.db, path)
	if err != nil {
		return nil, wrap("open", path, "", err)
	}
	if !ok {
		return nil, &Error{Op: "open", Path: path, Err: ErrNotFound}
	}
	return &sqliteKey{db: s.db, path: path}, nil
}

func (s *SQLite) DeleteKeyTree(ctx context.Context, path string) error {
	path = Clean(path)
	c := canonical(path)
	// Prefix match without LIKE so backslashes need no escaping.
	_, err := s.db.ExecContext(ctx, `
DELETE FROM store_keys
WHERE canon = ? OR substr(canon, 1, ?) = ?;
`, c, utf8.RuneCountInString(c)+1, c+`\`)
	if err != nil {
		return wrap("delete-tree", path, "", err)
	}
	return nil
}

func keyExists(ctx context.Context, db *sql.DB, path string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM store_keys WHERE canon = ?;", canonical(path)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read key: %w", err)
	}
	return true, nil
}

type sqliteKey struct {
	db   *sql.DB
	path string
}

func (k *sqliteKey) Path() string { return k.path }

func (k *sqliteKey) set(ctx context.Context, name string, kind Kind, values []string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return wrap("set", k.path, name, fmt.Errorf("marshal value: %w", err))
	}
	// The foreign key rejects writes to a key deleted since it was opened.
	_, err = k.db.ExecContext(ctx, `
INSERT INTO store_values(canon, name, kind, data, updated_at)
VALUES(?, ?, ?, ?, ?)
ON CONFLICT(canon, name) DO UPDATE SET
  kind = excluded.kind,
  data = excluded.data,
  updated_at = excluded.updated_at;
`, canonical(k.path), name, kind.String(), string(data), now())
	return wrap("set", k.path, name, err)
}

func (k *sqliteKey) SetString(ctx context.Context, name, value string) error {
	return k.set(ctx, name, KindString, []string{value})
}

func (k *sqliteKey) SetStrings(ctx context.Context, name string, values []string) error {
	if values == nil {
		values = []string{}
	}
	return k.set(ctx, name, KindStrings, values)
}

func decodeValue(name, kind, data string) (Value, error) {
	v := Value{Name: name, Kind: KindString}
	if kind == KindStrings.String() {
		v.Kind = KindStrings
	}
	if err := json.Unmarshal([]byte(data), &v.Strings); err != nil {
		return Value{}, fmt.Errorf("decode value %q: %w", name, err)
	}
	return v, nil
}

func (k *sqliteKey) get(ctx context.Context, name string) (Value, error) {
	var kind, data string
	err := k.db.QueryRowContext(ctx,
		"SELECT kind, data FROM store_values WHERE canon = ? AND name = ?;",
		canonical(k.path), name).Scan(&kind, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return Value{}, &Error{Op: "get", Path: k.path, Name: name, Err: ErrNotFound}
	}
	if err != nil {
		return Value{}, wrap("get", k.path, name, err)
	}
	v, err := decodeValue(name, kind, data)
	return v, wrap("get", k.path, name, err)
}

func (k *sqliteKey) GetString(ctx context.Context, name string) (string, error) {
	v, err := k.get(ctx, name)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func (k *sqliteKey) GetStrings(ctx context.Context, name string) ([]string, error) {
	v, err := k.get(ctx, name)
	if err != nil {
		return nil, err
	}
	return v.Strings, nil
}

func (k *sqliteKey) DeleteValue(ctx context.Context, name string) error {
	res, err := k.db.ExecContext(ctx,
		"DELETE FROM store_values WHERE canon = ? AND name = ?;",
		canonical(k.path), name)
	if err != nil {
		return wrap("delete-value", k.path, name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("delete-value", k.path, name, err)
	}
	if n == 0 {
		return &Error{Op: "delete-value", Path: k.path, Name: name, Err: ErrNotFound}
	}
	return nil
}

func (k *sqliteKey) Values(ctx context.Context) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		rows, err := k.db.QueryContext(ctx,
			"SELECT name, kind, data FROM store_values WHERE canon = ? ORDER BY name;",
			canonical(k.path))
		if err != nil {
			yield(Value{}, wrap("enum", k.path, "", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var name, kind, data string
			if err := rows.Scan(&name, &kind, &data); err != nil {
				yield(Value{}, wrap("enum", k.path, "", err))
				return
			}
			v, err := decodeValue(name, kind, data)
			if err != nil {
				yield(Value{}, wrap("enum", k.path, name, err))
				return
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Value{}, wrap("enum", k.path, "", err))
		}
	}
}

func (k *sqliteKey) SubKeyNames(ctx context.Context) ([]string, error) {
	rows, err := k.db.QueryContext(ctx,
		"SELECT path FROM store_keys WHERE parent = ?;", canonical(k.path))
	if err != nil {
		return nil, wrap("enum", k.path, "", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, wrap("enum", k.path, "", err)
		}
		names = append(names, p[strings.LastIndex(p, `\`)+1:])
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("enum", k.path, "", err)
	}
	sort.Strings(names)
	return names, nil
}

func (k *sqliteKey) Close() error { return nil }
