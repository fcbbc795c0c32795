package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/klwxsrx/event-booking/internal/user/domain"
	pkgsql "github.com/klwxsrx/event-booking/pkg/sql"
)

const usersTable = "users"

type userRepository struct {
	db pkgsql.Client
}

func NewUserRepository(db pkgsql.Client) domain.UserRepository {
	return userRepository{db: db}
}

func (r userRepository) Add(ctx context.Context, user *domain.User) (int64, error) {
	query, args, err := sq.
		Insert(usersTable).
		Columns("login", "email", "created_at").
		Values(user.Login, user.Email, user.CreatedAt).
		Suffix("returning id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var id int64
	err = r.db.GetContext(ctx, &id, query, args...)
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (r userRepository) FindOne(ctx context.Context, spec domain.FindUserSpecification) (*domain.User, error) {
	qb := sq.
		Select("id", "login", "email", "created_at").
		From(usersTable).
		Limit(1)
	if len(spec.IDs) > 0 {
		qb = qb.Where(sq.Eq{"id": spec.IDs})
	}
	if len(spec.Logins) > 0 {
		qb = qb.Where(sq.Eq{"login": spec.Logins})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row sqlxUser
	err = r.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &domain.User{
		ID:        row.ID,
		Login:     row.Login,
		Email:     row.Email,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (r userRepository) Delete(ctx context.Context, userID int64) error {
	query, args, err := sq.
		Delete(usersTable).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

type sqlxUser struct {
	ID        int64     `db:"id"`
	Login     string    `db:"login"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
}
