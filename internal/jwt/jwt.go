package jwt

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type UserToken struct {
	UserID   int64 `json:"userID"`
	Remember bool  `json:"rem"`
	jwt.RegisteredClaims
}

// ErrExpired distinguishes a stale credential from a malformed one; both are
// terminal but they are reported differently.
var ErrExpired = jwt.ErrTokenExpired

var jwtSecret []byte
var isHttps bool

func Setup(key string, https bool) {
	jwtSecret = []byte(key)
	isHttps = https
}

func CreateToken(rememberMe bool, userID int64) (http.Cookie, error) {
	var tokenLifeTime time.Duration
	if rememberMe {
		tokenLifeTime = time.Hour * 24 * 7 * 4 // 4 weeks
	} else {
		tokenLifeTime = time.Hour * 24 // 1 day
	}

	currentTime := time.Now().UTC()
	expirationDate := currentTime.Add(tokenLifeTime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, UserToken{
		UserID:   userID,
		Remember: rememberMe,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(expirationDate),
		},
	})

	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		return http.Cookie{}, err
	}

	cookie := http.Cookie{
		Name:     "JWT",
		Value:    tokenString,
		Path:     "/",
		HttpOnly: true,
		Secure:   isHttps,
		SameSite: http.SameSiteLaxMode,
	}

	if rememberMe {
		cookie.Expires = expirationDate
	}

	return cookie, nil
}

// VerifyToken parses and validates a token string. An expired token comes back
// as an error matching ErrExpired.
func VerifyToken(tokenString string) (UserToken, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserToken{}, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}))
	if err != nil {
		return UserToken{}, err
	}

	claims, ok := token.Claims.(*UserToken)
	if !ok {
		return UserToken{}, errors.New("invalid token")
	}
	return *claims, nil
}

// Authenticator adapts VerifyToken to the realtime gateway's credential check.
type Authenticator struct{}

func (Authenticator) Verify(credential string) (int64, error) {
	userToken, err := VerifyToken(credential)
	if err != nil {
		return 0, err
	}
	return userToken.UserID, nil
}
