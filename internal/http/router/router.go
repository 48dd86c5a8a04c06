package router

import (
	"net/http"
	"os"
	"path/filepath"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"portfolio/internal/http/handlers"
	"portfolio/internal/metrics"
	"portfolio/internal/security"
	"portfolio/internal/web"
)

type Handlers struct {
	Public   *handlers.PublicHandler
	Contact  *handlers.ContactHandler
	Auth     *handlers.AuthHandler
	Admin    *handlers.AdminHandler
	Projects *handlers.ProjectsHandler
	Profile  *handlers.ProfileHandler
	Health   *handlers.HealthHandler
}

// Setup builds the route table. Admin routes get the session attached;
// everything but login and logout also requires authentication.
func Setup(h Handlers, guard *security.Guard, publicDir string) *mux.Router {
	r := mux.NewRouter()
	r.Use(metrics.Middleware)

	r.HandleFunc("/", h.Public.Index).Methods("GET", "HEAD")
	r.HandleFunc("/index.php", h.Public.Index).Methods("GET", "HEAD")
	r.HandleFunc("/contact.php", h.Contact.Submit)

	r.Handle("/admin/login.php", guard.Attach(http.HandlerFunc(h.Auth.Login))).Methods("GET", "POST")
	r.Handle("/admin/logout.php", guard.Attach(http.HandlerFunc(h.Auth.Logout))).Methods("GET", "POST")

	admin := func(fn http.HandlerFunc) http.Handler {
		return guard.Attach(guard.RequireAuth(fn))
	}
	r.Handle("/admin/dashboard.php", admin(h.Admin.Dashboard)).Methods("GET")
	r.Handle("/admin/projects.php", admin(h.Projects.Projects)).Methods("GET", "POST")
	r.Handle("/admin/messages.php", admin(h.Admin.Messages)).Methods("GET", "POST")
	r.Handle("/admin/profile.php", admin(h.Profile.Profile)).Methods("GET", "POST")
	r.Handle("/admin/", http.RedirectHandler("/admin/dashboard.php", http.StatusFound))
	r.Handle("/admin", http.RedirectHandler("/admin/dashboard.php", http.StatusFound))

	r.HandleFunc("/healthz", h.Health.Health).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	images := filepath.Join(publicDir, filepath.FromSlash(security.ImagesDir))
	r.PathPrefix("/assets/images/").Handler(http.StripPrefix("/assets/images/", http.FileServer(noDirFS{http.Dir(images)})))
	r.PathPrefix("/assets/").Handler(web.Static())

	return r
}

// Wrap adds panic recovery, access logging and the security headers around
// the router, so unmatched paths get them too.
func Wrap(r http.Handler) http.Handler {
	logged := gorillahandlers.CombinedLoggingHandler(os.Stdout, security.SecureHeaders(r))
	return gorillahandlers.RecoveryHandler(gorillahandlers.PrintRecoveryStack(true))(logged)
}

// noDirFS hides directory listings of the uploads directory.
type noDirFS struct {
	fs http.FileSystem
}

func (n noDirFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
