package store

import (
	"context"
	"fmt"
)

// Book はユーザーの蔵書1冊を表します。
type Book struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	ImageURL string `json:"image_url"`
}

// AddBook は userID の蔵書として書籍を追加し、新しいIDを返します。
func (s *Store) AddBook(ctx context.Context, userID int64, title, author, imageURL string) (int64, error) {
	res, err := s.addBookStmt.ExecContext(ctx, userID, title, author, imageURL)
	if err != nil {
		return 0, fmt.Errorf("add book: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add book: %w", err)
	}
	return id, nil
}

// ListBooks は userID が所有する書籍を挿入順で返します。
// 所有者以外の書籍は決して含まれません。
func (s *Store) ListBooks(ctx context.Context, userID int64) ([]Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, author, image_url FROM books WHERE user_id = ? ORDER BY id;`, userID)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.UserID, &b.Title, &b.Author, &b.ImageURL); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}
