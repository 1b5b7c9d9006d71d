package auth

import (
	"context"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	XUserNameHeader = "X-User-Name"
	XUserRoleHeader = "X-User-Role"

	RoleUser  = "user"
	RoleStaff = "staff"
)

const defaultJWTKey = "store-service-dev-key"

// Key returns the HS256 signing key. Read on every call rather than at
// package init so a JWT_KEY loaded from .env in main is not missed.
func Key() []byte {
	if key := os.Getenv("JWT_KEY"); key != "" {
		return []byte(key)
	}
	return []byte(defaultJWTKey)
}

type Profile struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type Claims struct {
	Profile Profile `json:"profile"`
	jwt.RegisteredClaims
}

// GenerateToken issues an HS256 token for the given user.
func GenerateToken(username, role string, ttl time.Duration) (string, error) {
	claims := Claims{
		Profile: Profile{
			Username: username,
			Role:     role,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(Key())
}

type UserInfo struct {
	Username string
	Role     string
}

func (u UserInfo) IsStaff() bool {
	return u.Role == RoleStaff
}

type ctxKey int

const userInfoKey ctxKey = 1

func SetAuthContext(ctx context.Context, username, role string) context.Context {
	return context.WithValue(ctx, userInfoKey, UserInfo{Username: username, Role: role})
}

func FromContext(ctx context.Context) (UserInfo, bool) {
	u, ok := ctx.Value(userInfoKey).(UserInfo)
	return u, ok
}
