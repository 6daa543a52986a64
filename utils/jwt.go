// utils/jwt.go
package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the custom JWT claims. RestaurantID is the tenant every order
// request and stream subscription is scoped to.
type Claims struct {
	UserID       uint   `json:"userId"`
	RestaurantID uint   `json:"restaurantId"`
	Role         string `json:"role"`
	// TableID is set on customer sessions opened at a table.
	TableID uint `json:"tableId,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for a staff member.
func GenerateToken(userID, restaurantID uint, role string, secret string, ttl time.Duration) (string, error) {
	return sign(&Claims{UserID: userID, RestaurantID: restaurantID, Role: role}, secret, ttl)
}

// GenerateTableToken signs a customer session bound to one table.
func GenerateTableToken(restaurantID, tableID uint, role string, secret string, ttl time.Duration) (string, error) {
	return sign(&Claims{RestaurantID: restaurantID, Role: role, TableID: tableID}, secret, ttl)
}

func sign(claims *Claims, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates an HS256 token and returns its claims.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
