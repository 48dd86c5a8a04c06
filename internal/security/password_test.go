package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"portfolio/internal/models"
)

func TestHashPasswordArgon2id(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=4,p=3$"))

	assert.True(t, ComparePasswords(hash, "correct horse"))
	assert.False(t, ComparePasswords(hash, "wrong horse"))

	other, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salt must differ")
}

func TestComparePasswordsBcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, ComparePasswords(string(hash), "s3cret-pass"))
	assert.False(t, ComparePasswords(string(hash), "nope"))
}

func TestVerifyPasswordMalformed(t *testing.T) {
	for _, hash := range []string{"", "plain", "$argon2i$v=19$m=1,t=1,p=1$aa$bb", "$argon2id$v=19$m=x$aa$bb"} {
		ok, err := VerifyPassword(hash, "pw")
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrInvalidHash, hash)
	}
}

func TestCredentialRules(t *testing.T) {
	assert.False(t, ValidatePassword("short"))
	assert.True(t, ValidatePassword("longenough"))
	assert.False(t, ValidateUsername(" ab "))
	assert.True(t, ValidateUsername("admin"))
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken(16)
	require.NoError(t, err)
	b, err := GenerateSecureToken(16)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestCheckCredentials(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	user := &models.User{ID: 1, Username: "admin", PasswordHash: hash}

	assert.True(t, CheckCredentials(user, "s3cret-pass"))
	assert.False(t, CheckCredentials(user, "wrong-pass"))
	assert.False(t, CheckCredentials(nil, "s3cret-pass"))
}

func TestDummyHashCostsAsMuchAsARealOne(t *testing.T) {
	hash, err := HashPassword("anything")
	require.NoError(t, err)

	params := func(h string) string {
		parts := strings.Split(h, "$")
		require.Len(t, parts, 6)
		return strings.Join(parts[1:4], "$")
	}
	assert.Equal(t, params(hash), params(dummyHash))

	ok, err := VerifyPassword(dummyHash, "anything")
	require.NoError(t, err, "dummy hash must go through the full argon2id path")
	assert.False(t, ok)
}
