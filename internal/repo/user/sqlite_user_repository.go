package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mkrupp/homecase-postboard/internal/domain"
	"github.com/mkrupp/homecase-postboard/internal/infra/logging"
	"github.com/mkrupp/homecase-postboard/internal/repo/sqlite"
)

// SQLiteUserRepository implements Repository using SQLite as the storage backend.
type SQLiteUserRepository struct {
	db  *sqlite.DB
	log logging.Logger
	now func() time.Time
}

var _ Repository = (*SQLiteUserRepository)(nil)

// SQLiteUserRepositoryFactory creates a factory function that returns a new SQLiteUserRepository.
// The factory function implements the RepositoryFactory type.
func SQLiteUserRepositoryFactory(db *sqlite.DB) RepositoryFactory {
	return func() (Repository, error) {
		return NewSQLiteUserRepository(db), nil
	}
}

// NewSQLiteUserRepository creates a new SQLiteUserRepository on an opened record store.
func NewSQLiteUserRepository(db *sqlite.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{
		db:  db,
		log: logging.GetLogger("repo.user.sqlite_user_repository"),
		now: time.Now,
	}
}

const userColumns = "id, name, email, password_hash, created_at, updated_at"

// CreateUser implements Repository.CreateUser using SQLite.
func (r *SQLiteUserRepository) CreateUser(
	ctx context.Context,
	name, email string,
	passwordHash []byte,
) (user *domain.User, err error) {
	now := r.now().Unix()

	user = &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = r.db.Write(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			"INSERT INTO users (name, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			name, email, passwordHash, now, now,
		)
		if err != nil {
			return err
		}

		user.ID, err = res.LastInsertId()

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

// GetUserByEmail implements Repository.GetUserByEmail using SQLite.
func (r *SQLiteUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, "email = ?", email)
}

// GetUserByID implements Repository.GetUserByID using SQLite.
func (r *SQLiteUserRepository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getUser(ctx, "id = ?", id)
}

func (r *SQLiteUserRepository) getUser(ctx context.Context, where string, arg any) (*domain.User, error) {
	ctx, cancel := r.db.Op(ctx)
	defer cancel()

	var user domain.User

	//nolint:gosec
	err := r.db.Conn().QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where,
		arg,
	).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrUserNotFound, err)
		}

		return nil, fmt.Errorf("query user: %w", sqlite.Classify(err))
	}

	return &user, nil
}

// DeleteUser implements Repository.DeleteUser using SQLite.
func (r *SQLiteUserRepository) DeleteUser(ctx context.Context, id int64, thoroughly bool) (err error) {
	defer func() {
		if err != nil {
			r.log.DebugContext(ctx, "delete user failed", "id", id, "thoroughly", thoroughly, "error", err)
		} else {
			r.log.DebugContext(ctx, "user deleted", "id", id, "thoroughly", thoroughly)
		}
	}()

	err = r.db.Tx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if thoroughly {
			if _, err := tx.ExecContext(ctx, "DELETE FROM posts WHERE user_id = ?", id); err != nil {
				return fmt.Errorf("delete posts: %w", err)
			}
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
		if err != nil {
			return err
		}

		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return domain.ErrUserNotFound
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	return nil
}
