package db

import (
	"context"
	"errors"

	"portfolio/internal/models"
)

// GetProfile returns the first profile row.
func (db *DB) GetProfile(ctx context.Context) (*models.Profile, error) {
	profile := &models.Profile{}
	err := db.get(ctx, profile, "SELECT id, name, description, photo FROM profile ORDER BY id LIMIT 1")
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// SaveProfile updates the first profile row, inserting it when none exists.
func (db *DB) SaveProfile(ctx context.Context, p *models.Profile) error {
	current, err := db.GetProfile(ctx)
	if errors.Is(err, ErrNotFound) {
		id, err := db.insert(ctx, "INSERT INTO profile (name, description, photo) VALUES (?, ?, ?)",
			p.Name, p.Description, p.Photo)
		if err != nil {
			return err
		}
		p.ID = id
		return nil
	}
	if err != nil {
		return err
	}

	p.ID = current.ID
	_, err = db.exec(ctx, "UPDATE profile SET name = ?, description = ?, photo = ? WHERE id = ?",
		p.Name, p.Description, p.Photo, p.ID)
	return err
}

func (db *DB) ListProjects(ctx context.Context) ([]models.Project, error) {
	projects := []models.Project{}
	err := db.selectRows(ctx, &projects,
		"SELECT id, title, description, link, image, created_at FROM projects ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (db *DB) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	project := &models.Project{}
	err := db.get(ctx, project,
		"SELECT id, title, description, link, image, created_at FROM projects WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (db *DB) CreateProject(ctx context.Context, p *models.Project) error {
	p.CreatedAt = db.now()
	id, err := db.insert(ctx,
		"INSERT INTO projects (title, description, link, image, created_at) VALUES (?, ?, ?, ?, ?)",
		p.Title, p.Description, p.Link, p.Image, p.CreatedAt)
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (db *DB) UpdateProject(ctx context.Context, p *models.Project) error {
	res, err := db.exec(ctx, "UPDATE projects SET title = ?, description = ?, link = ?, image = ? WHERE id = ?",
		p.Title, p.Description, p.Link, p.Image, p.ID)
	if err != nil {
		return err
	}
	// MySQL reports zero affected rows when nothing changed, so only
	// trust RowsAffected on the other drivers.
	if db.DriverName() == "mysql" {
		return nil
	}
	return affected(res)
}

func (db *DB) DeleteProject(ctx context.Context, id int64) error {
	res, err := db.exec(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (db *DB) CountProjects(ctx context.Context) (int, error) {
	var n int
	if err := db.get(ctx, &n, "SELECT COUNT(*) FROM projects"); err != nil {
		return 0, err
	}
	return n, nil
}

func (db *DB) CreateMessage(ctx context.Context, m *models.Message) error {
	m.CreatedAt = db.now()
	id, err := db.insert(ctx, "INSERT INTO messages (name, email, message, created_at) VALUES (?, ?, ?, ?)",
		m.Name, m.Email, m.Message, m.CreatedAt)
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

func (db *DB) ListMessages(ctx context.Context, limit, offset int) ([]models.Message, error) {
	messages := []models.Message{}
	err := db.selectRows(ctx, &messages,
		"SELECT id, name, email, message, created_at FROM messages ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (db *DB) RecentMessages(ctx context.Context, n int) ([]models.Message, error) {
	return db.ListMessages(ctx, n, 0)
}

func (db *DB) CountMessages(ctx context.Context) (int, error) {
	var n int
	if err := db.get(ctx, &n, "SELECT COUNT(*) FROM messages"); err != nil {
		return 0, err
	}
	return n, nil
}

func (db *DB) DeleteMessage(ctx context.Context, id int64) error {
	res, err := db.exec(ctx, "DELETE FROM messages WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affected(res)
}
