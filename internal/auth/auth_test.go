package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("unit-test-secret")

func testActor() *Actor {
	return &Actor{
		ID:       "usr-001",
		Username: "police_officer",
		Role:     RolePolice,
		Name:     "Officer John Smith",
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	token, expiresAt, err := GenerateToken(testActor(), testSecret, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), expiresAt, 5*time.Second)

	actor, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "usr-001", actor.ID)
	assert.Equal(t, "police_officer", actor.Username)
	assert.Equal(t, RolePolice, actor.Role)
	assert.Equal(t, "Officer John Smith", actor.Name)
}

func TestGenerateToken_Invalid(t *testing.T) {
	_, _, err := GenerateToken(nil, testSecret, time.Hour)
	assert.Error(t, err)

	_, _, err = GenerateToken(testActor(), nil, time.Hour)
	assert.Error(t, err)

	_, _, err = GenerateToken(testActor(), testSecret, 0)
	assert.Error(t, err)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _, err := GenerateToken(testActor(), testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, []byte("other-secret"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Expired(t *testing.T) {
	token, _, err := GenerateToken(testActor(), testSecret, time.Millisecond)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = ParseToken(token, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken("", testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken("not.a.jwt", testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Forensic_Lab ")
	require.NoError(t, err)
	assert.Equal(t, RoleForensicLab, role)

	_, err = ParseRole("admin")
	assert.Error(t, err)

	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestRoleIn(t *testing.T) {
	assert.True(t, RolePolice.In(RolePolice, RoleForensicLab))
	assert.False(t, RoleJudge.In(RolePolice, RoleForensicLab))
	assert.False(t, RoleJudge.In())
}

func TestDirectoryAuthenticate(t *testing.T) {
	dir, err := SeedDirectory("demo123")
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		actor, err := dir.Authenticate("police_officer", "demo123", "police")
		require.NoError(t, err)
		assert.Equal(t, "usr-001", actor.ID)
		assert.Equal(t, RolePolice, actor.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := dir.Authenticate("police_officer", "wrong", "police")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("role mismatch", func(t *testing.T) {
		_, err := dir.Authenticate("police_officer", "demo123", "judge")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := dir.Authenticate("ghost", "demo123", "police")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := dir.Authenticate("police_officer", "demo123", "superuser")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestDirectoryAdd_Validation(t *testing.T) {
	dir := NewDirectory()

	err := dir.Add(Actor{Username: "", Role: RolePolice}, "pw")
	assert.Error(t, err)

	err = dir.Add(Actor{Username: "x", Role: Role("nope")}, "pw")
	assert.Error(t, err)

	err = dir.Add(Actor{Username: "x", Role: RolePolice}, "")
	assert.Error(t, err)
}
