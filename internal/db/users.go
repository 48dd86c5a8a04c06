package db

import (
	"context"
	"errors"

	"portfolio/internal/models"
)

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	err := db.get(ctx, user, "SELECT id, username, password_hash, created_at FROM users WHERE username = ?", username)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	err := db.get(ctx, user, "SELECT id, username, password_hash, created_at FROM users WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (db *DB) UserExists(ctx context.Context, username string) (bool, error) {
	var id int64
	err := db.get(ctx, &id, "SELECT id FROM users WHERE username = ?", username)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (db *DB) CreateUser(ctx context.Context, username, passwordHash string) (int64, error) {
	return db.insert(ctx, "INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)",
		username, passwordHash, db.now())
}
