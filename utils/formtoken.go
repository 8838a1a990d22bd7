package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cartpix/cartpix/config"
)

const formTokenPurpose = "cart_attachment_upload"

// FormTokenClaims are the JWT claims carried by an anti-forgery form token.
// Tokens stay valid for their whole window and may authorize several
// submissions; single use is a deliberate non-goal.
type FormTokenClaims struct {
	Purpose   string `json:"purpose"`
	SessionID string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

// IssueFormToken signs a form token for the given session.
func IssueFormToken(sessionID string, duration time.Duration) (string, error) {
	cfg := config.Get()

	claims := FormTokenClaims{
		Purpose:   formTokenPurpose,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.FormTokenSecret))
}

// VerifyFormToken validates a form token's signature, expiry, and purpose.
func VerifyFormToken(tokenStr string) error {
	cfg := config.Get()
	parsed, err := jwt.ParseWithClaims(tokenStr, &FormTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.FormTokenSecret), nil
	})
	if err != nil {
		return err
	}

	claims, ok := parsed.Claims.(*FormTokenClaims)
	if !ok || !parsed.Valid {
		return errors.New("invalid token claims")
	}
	if claims.Purpose != formTokenPurpose {
		return errors.New("token purpose mismatch")
	}
	return nil
}

// FormTokenVerifier adapts VerifyFormToken to the upload.TokenVerifier contract.
type FormTokenVerifier struct{}

// Verify implements upload.TokenVerifier.
func (FormTokenVerifier) Verify(token string) error {
	return VerifyFormToken(token)
}
