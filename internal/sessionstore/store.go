package sessionstore

import (
	"crypto/sha256"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/sessions"
)

type Options struct {
	Secret string
	MaxAge time.Duration
	Secure bool
}

// Keys derives the cookie signing and encryption keys from secret.
func Keys(secret string) (hashKey, blockKey []byte) {
	h := sha256.Sum256([]byte("session-hash:" + secret))
	b := sha256.Sum256([]byte("session-block:" + secret))
	return h[:], b[:]
}

func cookieOptions(opts Options) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ResolveDir is the directory NewFilesystem stores session files in.
func ResolveDir(dir string) string {
	if dir == "" {
		return filepath.Join(os.TempDir(), "portfolio-sessions")
	}
	return dir
}

// NewFilesystem keeps session values in files under dir; the cookie only
// carries the signed session id. Files outlive their cookie until Sweep
// removes them.
func NewFilesystem(dir string, opts Options) (*sessions.FilesystemStore, error) {
	dir = ResolveDir(dir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	hashKey, blockKey := Keys(opts.Secret)
	store := sessions.NewFilesystemStore(dir, hashKey, blockKey)
	store.MaxLength(8192)
	store.Options = cookieOptions(opts)
	return store, nil
}
