package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appliance-billing-backend/internal/apperr"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T) (*Service, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := NewService(Config{
		SigningKey:     []byte("test-signing-key"),
		Algorithm:      "HS256",
		Issuer:         "Backend",
		AccessLifetime: 15 * time.Minute,
	}, clock.Now)
	require.NoError(t, err)
	return svc, clock
}

func TestIssueAndVerify_ClaimsPerStage(t *testing.T) {
	svc, _ := newTestService(t)

	raw, err := svc.Issue(Challenge{RoomNum: 101, EndpointID: 7})
	require.NoError(t, err)
	claims, err := svc.Verify(raw, StageChallenge)
	require.NoError(t, err)
	assert.Equal(t, StageChallenge, claims.TokenType)
	assert.Equal(t, int64(101), claims.RoomNum)
	assert.Equal(t, int64(7), claims.EndpointID)
	assert.Equal(t, "Backend", claims.Issuer)
	assert.Empty(t, claims.ApplianceName)

	raw, err = svc.Issue(StartSession{RoomNum: 101, EndpointID: 7, ApplianceName: "washer", RunID: 42, Units: 60})
	require.NoError(t, err)
	claims, err = svc.Verify(raw, StageStart)
	require.NoError(t, err)
	assert.Equal(t, StageStart, claims.TokenType)
	assert.Equal(t, "washer", claims.ApplianceName)
	assert.Equal(t, int64(42), claims.RunID)
}

func TestVerify_RejectsWrongStage(t *testing.T) {
	svc, _ := newTestService(t)

	challenge, err := svc.Issue(Challenge{RoomNum: 101, EndpointID: 7})
	require.NoError(t, err)
	access, err := svc.Issue(Access{RoomNum: 101, EndpointID: 7})
	require.NoError(t, err)

	_, err = svc.Verify(challenge, StageAccess)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
	_, err = svc.Verify(challenge, StageStart)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
	_, err = svc.Verify(access, StageChallenge)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
}

func TestVerify_ChallengeExpiresAfterTwoMinutes(t *testing.T) {
	svc, clock := newTestService(t)

	raw, err := svc.Issue(Challenge{RoomNum: 101, EndpointID: 7})
	require.NoError(t, err)

	clock.Advance(2*time.Minute - time.Second)
	_, err = svc.Verify(raw, StageChallenge)
	assert.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = svc.Verify(raw, StageChallenge)
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)
}

func TestVerify_AccessLivesForConfiguredLifetime(t *testing.T) {
	svc, clock := newTestService(t)

	raw, err := svc.Issue(Access{RoomNum: 101, EndpointID: 7})
	require.NoError(t, err)

	clock.Advance(15*time.Minute - time.Second)
	_, err = svc.Verify(raw, StageAccess)
	assert.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = svc.Verify(raw, StageAccess)
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)
}

func TestVerify_StartSessionLifetimeIsSixtyPlusUnits(t *testing.T) {
	testCases := []struct {
		name  string
		units int64
	}{
		{"short run", 1},
		{"one minute", 60},
		{"four hours", 14400},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, clock := newTestService(t)
			raw, err := svc.Issue(StartSession{RoomNum: 1, EndpointID: 2, ApplianceName: "dryer", RunID: 3, Units: tc.units})
			require.NoError(t, err)

			lifetime := time.Duration(60+tc.units) * time.Second
			clock.Advance(lifetime - time.Second)
			_, err = svc.Verify(raw, StageStart)
			assert.NoError(t, err)

			clock.Advance(2 * time.Second)
			_, err = svc.Verify(raw, StageStart)
			assert.ErrorIs(t, err, apperr.ErrTokenExpired)
		})
	}
}

func TestVerify_RejectsTampering(t *testing.T) {
	svc, clock := newTestService(t)

	other, err := NewService(Config{
		SigningKey:     []byte("another-key"),
		Algorithm:      "HS256",
		Issuer:         "Backend",
		AccessLifetime: time.Minute,
	}, clock.Now)
	require.NoError(t, err)

	forged, err := other.Issue(Access{RoomNum: 101, EndpointID: 7})
	require.NoError(t, err)
	_, err = svc.Verify(forged, StageAccess)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)

	_, err = svc.Verify("not-a-token", StageAccess)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TokenType:  StageAccess,
		RoomNum:    101,
		EndpointID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Minute)),
		},
	}).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	_, err = svc.Verify(foreign, StageAccess)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
}

func TestVerify_StartTokenRequiresRunBinding(t *testing.T) {
	svc, _ := newTestService(t)

	raw, err := svc.Issue(StartSession{RoomNum: 1, EndpointID: 2, Units: 10})
	require.NoError(t, err)
	_, err = svc.Verify(raw, StageStart)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService(Config{Algorithm: "HS256", AccessLifetime: time.Minute}, nil)
	assert.Error(t, err, "empty key")

	_, err = NewService(Config{SigningKey: []byte("k"), Algorithm: "RS256", AccessLifetime: time.Minute}, nil)
	assert.Error(t, err, "non-HMAC algorithm")

	_, err = NewService(Config{SigningKey: []byte("k"), Algorithm: "HS384"}, nil)
	assert.Error(t, err, "zero access lifetime")

	svc, err := NewService(Config{SigningKey: []byte("k"), Algorithm: "HS512", AccessLifetime: time.Minute}, nil)
	require.NoError(t, err)
	raw, err := svc.Issue(Access{RoomNum: 1, EndpointID: 1})
	require.NoError(t, err)
	_, err = svc.Verify(raw, StageAccess)
	assert.NoError(t, err)
}
