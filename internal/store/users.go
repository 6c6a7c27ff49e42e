package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// User は登録済みユーザーを表します。
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Hash     string `json:"-"` // JSONには含めない
}

// CreateUser はユーザーを作成し、新しいIDを返します。
// ユーザー名が既に存在する場合は ErrUsernameTaken を返します。
func (s *Store) CreateUser(ctx context.Context, username, hash string) (int64, error) {
	res, err := s.addUserStmt.ExecContext(ctx, username, hash)
	if err != nil {
		// UNIQUE制約違反はそのまま漏らさず、ドメインのエラーに変換する
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, ErrUsernameTaken
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// UsersByUsername は指定のユーザー名を持つユーザーをすべて返します。
// 認証側は「ちょうど1件」であることを検証してから照合します。
func (s *Store) UsersByUsername(ctx context.Context, username string) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, hash FROM users WHERE username = ?;`, username)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Hash); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}
