package db

import (
	"context"

	"marketplace/models"
)

func (q *Queries) CreateUser(ctx context.Context, u *models.User) error {
	u.CreatedAt = now()
	id, err := q.insert(ctx, `
        INSERT INTO users (username, password_hash, role, created_at)
        VALUES (?, ?, ?, ?)
        RETURNING id`,
		u.Username, u.PasswordHash, u.Role, u.CreatedAt)
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func (q *Queries) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u := &models.User{}
	err := q.get(ctx, u, `SELECT id, username, password_hash, role, created_at FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u := &models.User{}
	err := q.get(ctx, u, `SELECT id, username, password_hash, role, created_at FROM users WHERE username = ?`, username)
	if err != nil {
		return nil, err
	}
	return u, nil
}
