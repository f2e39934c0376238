package api

import (
	"time"

	"github.com/golang-jwt/jwt"
)

var testSigningKey = []byte("test-signing-key")

func createTestJwt(key []byte, claims jwt.MapClaims) string {
	if _, ok := claims[expClaim]; !ok {
		claims[expClaim] = time.Now().Add(time.Hour).Unix()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		panic(err)
	}
	return token
}
