package types

import "github.com/golang-jwt/jwt/v4"

type HostClaims struct {
	Username string `json:"username"`
	UserID   uint   `json:"uid"`
	jwt.RegisteredClaims
}
