package models

import "time"

const (
	DefaultProjectImage = "assets/images/default-project.jpg"
	DefaultProfilePhoto = "assets/images/default-profile.jpg"
)

type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"` // Don't expose in JSON
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Profile struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	Photo       string `db:"photo" json:"photo"`
}

// DefaultProfile is shown on the public page until an admin saves a profile.
func DefaultProfile() Profile {
	return Profile{
		Name:        "Portfolio",
		Description: "Desarrollador Web",
		Photo:       DefaultProfilePhoto,
	}
}

type Project struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Link        string    `db:"link" json:"link"`
	Image       string    `db:"image" json:"image"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// HasCustomImage reports whether the project owns an uploaded image file.
func (p Project) HasCustomImage() bool {
	return p.Image != "" && p.Image != DefaultProjectImage
}

type Message struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type RateLimitEntry struct {
	IPAddress string    `db:"ip_address" json:"ip_address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type DashboardStats struct {
	Projects int
	Messages int
	Recent   []Message
}

// MessagePage is one page of the admin inbox.
type MessagePage struct {
	Items      []Message
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewMessagePage computes the page count for total messages. A page past the
// end yields an empty Items slice, not an error.
func NewMessagePage(items []Message, page, perPage, total int) MessagePage {
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return MessagePage{Items: items, Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

func (p MessagePage) HasPrev() bool { return p.Page > 1 }

func (p MessagePage) HasNext() bool { return p.Page < p.TotalPages }

// Offset is the row offset of the first message on page.
func Offset(page, perPage int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * perPage
}
