package user

import (
	"context"
	"database/sql"
	"strings"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `user_id, email, password_hash, first_name, last_name, created_at, updated_at`

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, id)
	return scanUser(row)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *PostgresRepository) Create(ctx context.Context, u User) (User, error) {
	err := r.db.QueryRowContext(ctx, `INSERT INTO users (email, password_hash, first_name, last_name, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING user_id`,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	if err != nil {
		// unique violation on the email index
		if strings.Contains(err.Error(), "duplicate key") {
			return User{}, ErrEmailExists
		}
		return User{}, err
	}
	return u, nil
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}
