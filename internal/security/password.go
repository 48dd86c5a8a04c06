package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"portfolio/internal/models"
)

// Argon2id parameters. Hashes are stored in PHC string form so hashes
// produced by other argon2id implementations verify as well.
const (
	argonMemory  = 64 * 1024
	argonTime    = 4
	argonThreads = 3
	argonKeyLen  = 32
	argonSaltLen = 16

	MinPasswordLength = 8
	MinUsernameLength = 3
)

var ErrInvalidHash = errors.New("invalid password hash format")

func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// VerifyPassword checks password against an argon2id PHC string or a bcrypt hash.
func VerifyPassword(hash, password string) (bool, error) {
	if strings.HasPrefix(hash, "$2") {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return err == nil, err
	}

	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, ErrInvalidHash
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrInvalidHash
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, ErrInvalidHash
	}

	got := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// dummyHash has the same parameters as HashPassword output. Checking against
// it keeps an unknown username as slow as a wrong password.
var dummyHash = fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$gYbndWWVmGtXmU5idDdtAQ$eRUxhMqM1ydSMpusQFLD3ai8mSwqVkmi87lEn8Qh7+k",
	argon2.Version, argonMemory, argonTime, argonThreads)

// CheckCredentials reports whether password matches user. A nil user still
// costs one hash verification.
func CheckCredentials(user *models.User, password string) bool {
	if user == nil {
		ComparePasswords(dummyHash, password)
		return false
	}
	return ComparePasswords(user.PasswordHash, password)
}

func ComparePasswords(hashedPassword, password string) bool {
	ok, err := VerifyPassword(hashedPassword, password)
	return err == nil && ok
}

func ValidatePassword(password string) bool {
	return utf8.RuneCountInString(password) >= MinPasswordLength
}

func ValidateUsername(username string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(username)) >= MinUsernameLength
}
