// Package auth issues and verifies the HS256 access tokens of the registry.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Subject is who an access token speaks for.
type Subject struct {
	UserID    string
	ProfileID string
}

// Claims are the registered claims plus the user and the profile it owns.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"uid"`
	ProfileID string `json:"pid"`
}

// nowFunc is a seam for token timestamps.
var nowFunc = time.Now

func GenerateToken(sub Subject, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := nowFunc()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID:    sub.UserID,
		ProfileID: sub.ProfileID,
	})

	return token.SignedString(secretKey)
}

// ParseToken verifies tokenString. An expired but otherwise valid token
// yields common.ErrTokenExpired; anything else that fails is
// common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (Subject, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(nowFunc))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Subject{}, common.ErrTokenExpired
		}
		return Subject{}, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return Subject{}, common.ErrInvalidToken
	}

	return Subject{UserID: claims.UserID, ProfileID: claims.ProfileID}, nil
}
