package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bulk-order-service/apperrors"
	"bulk-order-service/database"
	"bulk-order-service/models"
)

const userColumns = `id, name, email, contact, role, password_hash, created_at`

type MySQLUserRepository struct {
	db *sql.DB
}

func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Contact, &u.Role, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *MySQLUserRepository) CreateUser(ctx context.Context, u *models.User) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, contact, role, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.Contact, u.Role, u.PasswordHash, u.CreatedAt)
	if database.IsDuplicateKey(err) {
		return apperrors.Conflict("Email is already registered")
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = id
	return nil
}

func (r *MySQLUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *MySQLUserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *MySQLUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireAffected(res, "User not found")
}

func (r *MySQLUserRepository) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
