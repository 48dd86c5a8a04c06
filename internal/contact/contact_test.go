package contact

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/internal/db"
	"portfolio/internal/models"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	sent []models.Message
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg models.Message) error {
	n.sent = append(n.sent, msg)
	return n.err
}

func newTestService(t *testing.T) (*Service, *db.DB, *testClock, *recordingNotifier) {
	t.Helper()
	database, err := db.Init("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	clock := &testClock{t: time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)}
	database.Clock = clock.Now

	notifier := &recordingNotifier{}
	limiter := NewLimiter(database, 3, time.Hour, clock.Now)
	return NewService(database, limiter, notifier), database, clock, notifier
}

func validForm() Form {
	return Form{
		Name:    "Ada Lovelace",
		Email:   "ada@example.com",
		Message: "Me gustaría hablar sobre un proyecto.",
	}
}

func TestFormValidate(t *testing.T) {
	long := func(n int) string {
		b := make([]byte, n)
		for i := range b {
			b[i] = 'a'
		}
		return string(b)
	}

	tests := []struct {
		name string
		edit func(*Form)
		want ValidationErrors
	}{
		{"valid", func(*Form) {}, nil},
		{"accented name", func(f *Form) { f.Name = "José Núñez" }, nil},
		{"empty name", func(f *Form) { f.Name = "" }, ValidationErrors{"El nombre es obligatorio"}},
		{"short name", func(f *Form) { f.Name = "A" }, ValidationErrors{"El nombre debe tener al menos 2 caracteres"}},
		{"long name", func(f *Form) { f.Name = long(101) }, ValidationErrors{"El nombre no puede exceder 100 caracteres"}},
		{"digits in name", func(f *Form) { f.Name = "R2D2" }, ValidationErrors{"El nombre solo puede contener letras y espacios"}},
		{"bad email", func(f *Form) { f.Email = "not-an-email" }, ValidationErrors{"El email no es válido"}},
		{"long email", func(f *Form) { f.Email = long(60) + "@" + strings.Repeat("b", 36) + ".com" }, ValidationErrors{"El email no puede exceder 100 caracteres"}},
		{"short message", func(f *Form) { f.Message = "hola" }, ValidationErrors{"El mensaje debe tener al menos 10 caracteres"}},
		{"long message", func(f *Form) { f.Message = long(1001) }, ValidationErrors{"El mensaje no puede exceder 1000 caracteres"}},
		{"spam keyword", func(f *Form) { f.Message = "You are a WINNER of our prize" }, ValidationErrors{"El mensaje contiene contenido no permitido"}},
		{"link", func(f *Form) { f.Message = "Mira esto: www.example.com ahora" }, ValidationErrors{"El mensaje contiene contenido no permitido"}},
		{"all empty", func(f *Form) { *f = Form{} }, ValidationErrors{
			"El nombre es obligatorio",
			"El email es obligatorio",
			"El mensaje es obligatorio",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.edit(&f)
			err := f.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.want, verrs)
		})
	}
}

func TestIsSpam(t *testing.T) {
	assert.True(t, IsSpam("CLICK HERE for more"))
	assert.True(t, IsSpam("see https://example.com"))
	assert.False(t, IsSpam("winners are grinners")) // word boundary
	assert.False(t, IsSpam("Hola, me interesa tu trabajo"))
}

func TestSubmitStoresMessageAndNotifies(t *testing.T) {
	svc, database, _, notifier := newTestService(t)
	ctx := context.Background()

	form := validForm()
	form.Name = "  Ada Lovelace  "
	form.Message = "Hola, \"quiero\" un presupuesto & más"

	msg, err := svc.Submit(ctx, "198.51.100.7", form)
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.Equal(t, "Ada Lovelace", msg.Name)
	assert.Equal(t, "Hola, &#34;quiero&#34; un presupuesto &amp; más", msg.Message)

	n, err := database.CountMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "Hola, \"quiero\" un presupuesto & más", notifier.sent[0].Message)
}

func TestSubmitHoneypot(t *testing.T) {
	svc, database, _, notifier := newTestService(t)
	ctx := context.Background()

	form := validForm()
	form.Website = "http://spam.example"
	_, err := svc.Submit(ctx, "198.51.100.7", form)
	assert.ErrorIs(t, err, ErrSpam)

	n, err := database.CountMessages(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, notifier.sent)
}

func TestSubmitInvalidHasNoSideEffects(t *testing.T) {
	svc, database, clock, _ := newTestService(t)
	ctx := context.Background()

	form := validForm()
	form.Email = "nope"
	_, err := svc.Submit(ctx, "198.51.100.7", form)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)

	n, err := database.CountRateLimit(ctx, "198.51.100.7", clock.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSubmitRateLimit(t *testing.T) {
	svc, database, clock, _ := newTestService(t)
	ctx := context.Background()
	ip := "203.0.113.5"

	for i := 0; i < 3; i++ {
		_, err := svc.Submit(ctx, ip, validForm())
		require.NoError(t, err, "submission %d", i+1)
		clock.Advance(10 * time.Minute)
	}

	// T+30: fourth submission inside the hour.
	_, err := svc.Submit(ctx, ip, validForm())
	require.ErrorIs(t, err, ErrRateLimited)
	var rl *RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 30, rl.WaitMinutes)

	// Another client is unaffected.
	_, err = svc.Submit(ctx, "203.0.113.6", validForm())
	require.NoError(t, err)

	// The first entry ages past the hour.
	clock.Advance(30*time.Minute + time.Second)
	_, err = svc.Submit(ctx, ip, validForm())
	require.NoError(t, err)

	n, err := database.CountMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestSubmitNotifyFailureIsIgnored(t *testing.T) {
	svc, _, _, notifier := newTestService(t)
	notifier.err = errors.New("smtp down")

	_, err := svc.Submit(context.Background(), "198.51.100.7", validForm())
	assert.NoError(t, err)
}

type failingStore struct{}

func (failingStore) PruneRateLimit(context.Context, time.Time) error { return errors.New("db down") }
func (failingStore) CountRateLimit(context.Context, string, time.Time) (int, error) {
	return 0, errors.New("db down")
}
func (failingStore) OldestRateLimit(context.Context, string, time.Time) (time.Time, error) {
	return time.Time{}, errors.New("db down")
}
func (failingStore) InsertRateLimit(context.Context, string, time.Time) error { return errors.New("db down") }

func TestLimiterFailsOpen(t *testing.T) {
	l := NewLimiter(failingStore{}, 3, time.Hour, nil)
	for i := 0; i < 5; i++ {
		assert.NoError(t, l.Check(context.Background(), "10.0.0.1"))
		l.Record(context.Background(), "10.0.0.1")
	}
}

func TestSubmitStoresMessageWhenRecordFails(t *testing.T) {
	database, err := db.Init("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	svc := NewService(database, NewLimiter(failingStore{}, 3, time.Hour, nil), &recordingNotifier{})
	msg, err := svc.Submit(context.Background(), "10.0.0.1", validForm())
	require.NoError(t, err)
	require.NotNil(t, msg)

	n, err := database.CountMessages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
