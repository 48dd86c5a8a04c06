package web

import "portfolio/internal/models"

type Flash struct {
	Type    string // success or error
	Message string
}

func Success(msg string) *Flash { return &Flash{Type: "success", Message: msg} }

func Error(msg string) *Flash { return &Flash{Type: "error", Message: msg} }

// AdminPage carries what the shared admin layout needs.
type AdminPage struct {
	Title    string
	Active   string
	Username string
	CSRF     string
	Flash    *Flash
}

type IndexView struct {
	Profile  models.Profile
	Projects []models.Project
}

type LoginView struct {
	Username string
	Error    string
	Notice   string
}

type DashboardView struct {
	AdminPage
	Stats models.DashboardStats
}

type ProjectsView struct {
	AdminPage
	Projects []models.Project
	Edit     *models.Project
}

type MessagesView struct {
	AdminPage
	Page models.MessagePage
}

type ProfileView struct {
	AdminPage
	Profile models.Profile
}
