// Package token issues and verifies the signed claim sets used by the room
// authorization protocol. A token is bound to one Stage; Verify rejects a
// token presented at any other stage.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"appliance-billing-backend/internal/apperr"
)

// Stage identifies which step of the protocol a token belongs to.
type Stage string

const (
	StageChallenge Stage = "challenge"
	StageAccess    Stage = "access"
	StageStart     Stage = "start"
)

const (
	challengeLifetime = 2 * time.Minute
	startSlack        = 60 * time.Second
)

// Claims is the payload carried by every token.
type Claims struct {
	TokenType     Stage  `json:"token_type"`
	RoomNum       int64  `json:"room_num"`
	EndpointID    int64  `json:"endpoint_id"`
	ApplianceName string `json:"appliance_name,omitempty"`
	RunID         int64  `json:"run_id,omitempty"`
	jwt.RegisteredClaims
}

// Grant is one of Challenge, Access or StartSession.
type Grant interface {
	stage() Stage
	lifetime(cfg Config) time.Duration
	claims() Claims
}

// Challenge is issued once the room and endpoint are known to exist.
type Challenge struct {
	RoomNum    int64
	EndpointID int64
}

func (Challenge) stage() Stage                  { return StageChallenge }
func (Challenge) lifetime(Config) time.Duration { return challengeLifetime }
func (g Challenge) claims() Claims {
	return Claims{RoomNum: g.RoomNum, EndpointID: g.EndpointID}
}

// Access is issued after a successful TOTP check.
type Access struct {
	RoomNum    int64
	EndpointID int64
}

func (Access) stage() Stage                      { return StageAccess }
func (Access) lifetime(cfg Config) time.Duration { return cfg.AccessLifetime }
func (g Access) claims() Claims {
	return Claims{RoomNum: g.RoomNum, EndpointID: g.EndpointID}
}

// StartSession is issued when a run starts and authorizes finishing it.
// It stays valid for the run's duration in seconds plus one minute.
type StartSession struct {
	RoomNum       int64
	EndpointID    int64
	ApplianceName string
	RunID         int64
	Units         int64
}

func (StartSession) stage() Stage { return StageStart }
func (g StartSession) lifetime(Config) time.Duration {
	return startSlack + time.Duration(g.Units)*time.Second
}
func (g StartSession) claims() Claims {
	return Claims{
		RoomNum:       g.RoomNum,
		EndpointID:    g.EndpointID,
		ApplianceName: g.ApplianceName,
		RunID:         g.RunID,
	}
}

// Config is the signing configuration shared by all stages.
type Config struct {
	SigningKey     []byte
	Algorithm      string
	Issuer         string
	AccessLifetime time.Duration
}

// Service signs and verifies tokens. It holds no mutable state.
type Service struct {
	cfg    Config
	method *jwt.SigningMethodHMAC
	now    func() time.Time
}

// NewService validates cfg and returns a Service using now as its clock.
// A nil now defaults to time.Now.
func NewService(cfg Config, now func() time.Time) (*Service, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("token: empty signing key")
	}
	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("token: unsupported signing algorithm %q", cfg.Algorithm)
	}
	if cfg.AccessLifetime <= 0 {
		return nil, errors.New("token: access lifetime must be positive")
	}
	if now == nil {
		now = time.Now
	}
	return &Service{cfg: cfg, method: method, now: now}, nil
}

// Issue signs the claims for g.
func (s *Service) Issue(g Grant) (string, error) {
	now := s.now()
	claims := g.claims()
	claims.TokenType = g.stage()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    s.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.lifetime(s.cfg))),
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", claims.TokenType, err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry of raw and that it was
// issued for want.
func (s *Service) Verify(raw string, want Stage) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.cfg.SigningKey, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%s token: %w", want, apperr.ErrTokenExpired)
	case err != nil:
		return nil, fmt.Errorf("%s token: %v: %w", want, err, apperr.ErrTokenInvalid)
	}

	if claims.TokenType != want {
		return nil, fmt.Errorf("expected %s token, got %q: %w", want, claims.TokenType, apperr.ErrTokenInvalid)
	}
	if want == StageStart && (claims.ApplianceName == "" || claims.RunID == 0) {
		return nil, fmt.Errorf("start token without run binding: %w", apperr.ErrTokenInvalid)
	}
	return claims, nil
}
