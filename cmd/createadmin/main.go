package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"portfolio/internal/config"
	"portfolio/internal/db"
	"portfolio/internal/security"
)

type userStore interface {
	UserExists(ctx context.Context, username string) (bool, error)
	CreateUser(ctx context.Context, username, passwordHash string) (int64, error)
}

var (
	errShortUsername = errors.New("username must be at least 3 characters long")
	errShortPassword = errors.New("password must be at least 8 characters long")
	errMismatch      = errors.New("passwords do not match")
	errUserExists    = errors.New("user already exists")
)

func main() {
	configPath := flag.String("config", "config/app.yaml", "path to the YAML config file")
	username := flag.String("username", "", "admin username (prompted when empty)")
	password := flag.String("password", "", "admin password (prompted when empty)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to load .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Failed to load config: %v, using defaults", err)
	}
	cfg.ApplyEnv()

	database, err := db.Init(cfg.Database.Driver, cfg.Database.DataSource())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	var readSecret secretReader
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		readSecret = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Println()
			return string(b), err
		}
	}

	fmt.Println("=== Portfolio Admin User Creation ===")
	if err := createAdmin(context.Background(), database, os.Stdin, os.Stdout, readSecret, *username, *password); err != nil {
		database.Close()
		log.Fatalf("Error creating user: %v", err)
	}
}

// secretReader reads one password without echoing it.
type secretReader func() (string, error)

// createAdmin prompts on in for whatever was not given as a flag, then stores
// the user with an argon2id hash. Passwords go through readSecret when set.
func createAdmin(ctx context.Context, store userStore, in io.Reader, out io.Writer, readSecret secretReader, username, password string) error {
	reader := bufio.NewReader(in)
	prompt := func(label string) (string, error) {
		fmt.Fprint(out, label)
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("read input: %w", err)
		}
		return strings.TrimSpace(line), nil
	}
	promptSecret := func(label string) (string, error) {
		if readSecret == nil {
			return prompt(label)
		}
		fmt.Fprint(out, label)
		secret, err := readSecret()
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(secret), nil
	}

	var err error
	if username == "" {
		if username, err = prompt("Enter admin username: "); err != nil {
			return err
		}
	}
	username = strings.TrimSpace(username)
	if !security.ValidateUsername(username) {
		return errShortUsername
	}

	confirm := password
	if password == "" {
		if password, err = promptSecret("Enter admin password (min 8 characters): "); err != nil {
			return err
		}
		if !security.ValidatePassword(password) {
			return errShortPassword
		}
		if confirm, err = promptSecret("Confirm password: "); err != nil {
			return err
		}
	}
	if !security.ValidatePassword(password) {
		return errShortPassword
	}
	if password != confirm {
		return errMismatch
	}

	exists, err := store.UserExists(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return errUserExists
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := store.CreateUser(ctx, username, hash); err != nil {
		return err
	}

	fmt.Fprintln(out, "Admin user created successfully!")
	fmt.Fprintf(out, "Username: %s\n", username)
	fmt.Fprintln(out, "You can now login at /admin/login.php")
	return nil
}
