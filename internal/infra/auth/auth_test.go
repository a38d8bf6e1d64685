package auth

import (
	"sync"
	"testing"
	"time"

	"threads/config"
	"threads/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Auth.JWTSecret = "test_secret_key_very_long_for_testing"
	cfg.Auth.BcryptCost = bcrypt.MinCost

	return cfg
}

func TestJWTService_IssueAndValidate(t *testing.T) {
	svc, err := NewJWTService(testConfig())
	require.NoError(t, err)

	token, issuedAt, err := svc.Issue("u1", "a@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now(), issuedAt, 2*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestJWTService_RejectsForeignAndExpiredTokens(t *testing.T) {
	cfg := testConfig()
	svc, err := NewJWTService(cfg)
	require.NoError(t, err)

	other := testConfig()
	other.Auth.JWTSecret = "another_secret"
	otherSvc, err := NewJWTService(other)
	require.NoError(t, err)

	foreign, _, err := otherSvc.Issue("u1", "a@example.com")
	require.NoError(t, err)
	_, err = svc.Validate(foreign)
	assert.Error(t, err)

	_, err = svc.Validate("not-a-token")
	assert.Error(t, err)

	token, _, err := svc.Issue("u1", "a@example.com")
	require.NoError(t, err)
	svc.(*jwtService).now = func() time.Time { return time.Now().Add(cfg.Auth.SessionTTL + time.Hour) }
	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestNewJWTService_RequiresSecret(t *testing.T) {
	_, err := NewJWTService(config.Default())
	assert.Error(t, err)
}

func TestBcryptHasher(t *testing.T) {
	hasher := NewBcryptHasher(testConfig())

	hash, err := hasher.Hash("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)

	assert.True(t, hasher.Check("s3cret!", hash))
	assert.False(t, hasher.Check("wrong", hash))
	assert.False(t, hasher.Check("s3cret!", "not-a-hash"))

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestSessionHub_FanOutAndCancel(t *testing.T) {
	hub := NewSessionHub()
	assert.Nil(t, hub.Current())

	var mu sync.Mutex
	var seenA, seenB []string
	record := func(dst *[]string) func(*entity.Session) {
		return func(s *entity.Session) {
			mu.Lock()
			defer mu.Unlock()
			if s == nil {
				*dst = append(*dst, "nil")

				return
			}
			*dst = append(*dst, s.UID)
		}
	}

	cancelA := hub.Subscribe(record(&seenA))
	cancelB := hub.Subscribe(record(&seenB))

	hub.Set(&entity.Session{UID: "u1"})
	cancelA()
	cancelA()
	hub.Set(nil)
	cancelB()
	hub.Set(&entity.Session{UID: "u2"})

	assert.Equal(t, []string{"u1"}, seenA)
	assert.Equal(t, []string{"u1", "nil"}, seenB)
	assert.Equal(t, "u2", hub.Current().UID)
}

func TestSessionHub_CurrentIsACopy(t *testing.T) {
	hub := NewSessionHub()
	hub.Set(&entity.Session{UID: "u1"})

	got := hub.Current()
	got.UID = "mutated"

	assert.Equal(t, "u1", hub.Current().UID)
}
