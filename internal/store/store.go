// Package store はSQLiteへの永続化（ユーザー・書籍）を提供します。
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// ErrUsernameTaken はユーザー名が既に登録済みであることを示します。
var ErrUsernameTaken = errors.New("username already taken")

// Store はSQLite接続と準備済みステートメントを保持します。
type Store struct {
	db *sql.DB

	addUserStmt *sql.Stmt
	addBookStmt *sql.Stmt
}

// Open は dbPath のSQLiteデータベースを開き（なければ作成し）、
// スキーママイグレーションを適用します。
func Open(dbPath string) (*Store, error) {
	// 初回起動でも成功するようディレクトリを作っておく
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// busy_timeout と外部キー制約を有効化する
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	store := &Store{db: db}
	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close は準備済みステートメントを解放し、接続を閉じます。
func (s *Store) Close() error {
	if s.addUserStmt != nil {
		s.addUserStmt.Close()
	}
	if s.addBookStmt != nil {
		s.addBookStmt.Close()
	}
	return s.db.Close()
}

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	// WALで書き込み並行性を上げる
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL UNIQUE,
            hash TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL REFERENCES users(id),
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            image_url TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE INDEX IF NOT EXISTS idx_books_user_id ON books(user_id);`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
         ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
		fmt.Sprint(schemaVersion),
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) prepareStatements() error {
	var err error
	s.addUserStmt, err = s.db.Prepare(`INSERT INTO users (username, hash) VALUES (?, ?);`)
	if err != nil {
		return fmt.Errorf("prepare add user: %w", err)
	}
	s.addBookStmt, err = s.db.Prepare(`INSERT INTO books (user_id, title, author, image_url) VALUES (?, ?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("prepare add book: %w", err)
	}
	return nil
}
