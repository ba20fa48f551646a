package post

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mkrupp/homecase-postboard/internal/domain"
	"github.com/mkrupp/homecase-postboard/internal/repo/sqlite"
)

// SQLitePostRepository implements Repository using SQLite as the storage backend.
type SQLitePostRepository struct {
	db  *sqlite.DB
	now func() time.Time
}

var _ Repository = (*SQLitePostRepository)(nil)

func NewSQLitePostRepository(db *sqlite.DB) *SQLitePostRepository {
	return &SQLitePostRepository{db: db, now: time.Now}
}

const postColumns = "id, user_id, title, text, category, created_at, updated_at"

func (r *SQLitePostRepository) CreatePost(
	ctx context.Context,
	userID int64,
	title, text string,
	category domain.Category,
) (*domain.Post, error) {
	now := r.now().Unix()

	post := &domain.Post{
		UserID:    userID,
		Title:     title,
		Text:      text,
		Category:  category,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.db.Write(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			"INSERT INTO posts (user_id, title, text, category, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			userID, title, text, string(category), now, now,
		)
		if err != nil {
			return err
		}

		post.ID, err = res.LastInsertId()

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}

	return post, nil
}

func (r *SQLitePostRepository) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	ctx, cancel := r.db.Op(ctx)
	defer cancel()

	post, err := scanPost(r.db.Conn().QueryRowContext(ctx,
		"SELECT "+postColumns+" FROM posts WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrPostNotFound, err)
		}

		return nil, fmt.Errorf("query post: %w", sqlite.Classify(err))
	}

	return post, nil
}

func (r *SQLitePostRepository) ListPostsByUser(ctx context.Context, userID int64) ([]domain.Post, error) {
	ctx, cancel := r.db.Op(ctx)
	defer cancel()

	rows, err := r.db.Conn().QueryContext(ctx,
		"SELECT "+postColumns+" FROM posts WHERE user_id = ? ORDER BY id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", sqlite.Classify(err))
	}
	defer rows.Close()

	posts := []domain.Post{}

	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", sqlite.Classify(err))
		}

		posts = append(posts, *post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", sqlite.Classify(err))
	}

	return posts, nil
}

func (r *SQLitePostRepository) DeletePost(ctx context.Context, id int64) error {
	err := r.db.Write(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
		if err != nil {
			return err
		}

		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return domain.ErrPostNotFound
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*domain.Post, error) {
	var (
		post     domain.Post
		category string
	)

	if err := row.Scan(&post.ID, &post.UserID, &post.Title, &post.Text, &category,
		&post.CreatedAt, &post.UpdatedAt); err != nil {
		return nil, err //nolint:wrapcheck
	}

	post.Category = domain.Category(category)

	return &post, nil
}
