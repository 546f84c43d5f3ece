package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"appliance-billing-backend/internal/apperr"
	"appliance-billing-backend/internal/model"
	"appliance-billing-backend/internal/store"
	"appliance-billing-backend/internal/token"
)

// codeOpts accepts the current 30 second step and one step either side.
var codeOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Authenticator drives the two-step room authorization handshake.
type Authenticator struct {
	store  store.Store
	tokens *token.Service
	now    func() time.Time
}

// NewAuthenticator creates an Authenticator. A nil now defaults to time.Now.
func NewAuthenticator(s store.Store, tokens *token.Service, now func() time.Time) *Authenticator {
	if now == nil {
		now = time.Now
	}
	return &Authenticator{store: s, tokens: tokens, now: now}
}

// VerifyResult is returned after a successful code check.
type VerifyResult struct {
	AccessToken string
	Balance     int64
	Appliances  []model.Appliance
}

// Challenge issues a challenge token once both the room and the endpoint are known.
func (a *Authenticator) Challenge(ctx context.Context, roomNum, endpointID int64) (string, error) {
	if _, err := a.store.RoomByKey(ctx, roomNum); err != nil {
		return "", err
	}
	if _, err := a.store.EndpointByID(ctx, endpointID); err != nil {
		return "", err
	}
	return a.tokens.Issue(token.Challenge{RoomNum: roomNum, EndpointID: endpointID})
}

// Verify checks authCode against the TOTP secret of the room named in the
// challenge token and, on success, issues an access token for the same room
// and endpoint.
func (a *Authenticator) Verify(ctx context.Context, challenge string, authCode int) (*VerifyResult, error) {
	claims, err := a.tokens.Verify(challenge, token.StageChallenge)
	if err != nil {
		return nil, err
	}

	room, err := a.store.RoomByKey(ctx, claims.RoomNum)
	if err != nil {
		return nil, err
	}
	secret, err := a.store.RoomSecret(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	if !validCode(authCode, secret, a.now()) {
		return nil, fmt.Errorf("room %d: %w", room.Key, apperr.ErrInvalidAuthCode)
	}

	access, err := a.tokens.Issue(token.Access{RoomNum: claims.RoomNum, EndpointID: claims.EndpointID})
	if err != nil {
		return nil, err
	}

	appliances, err := a.store.ListAppliances(ctx)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		AccessToken: access,
		Balance:     room.Balance,
		Appliances:  appliances,
	}, nil
}

func validCode(code int, secret string, at time.Time) bool {
	if code < 0 || code > 999999 {
		return false
	}
	ok, err := totp.ValidateCustom(fmt.Sprintf("%06d", code), secret, at, codeOpts)
	return err == nil && ok
}
