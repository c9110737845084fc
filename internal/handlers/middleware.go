package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"channelchat-backend/internal/jwt"
	"channelchat-backend/internal/keyValue"

	"go.uber.org/zap"
)

type UserIDKeyType struct{}

func userID(r *http.Request) int64 {
	return r.Context().Value(UserIDKeyType{}).(int64)
}

func AllowCors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// UserVerifier authenticates the request from the JWT cookie and passes the
// user ID along in the context. Existence of the user is cached briefly so
// every request doesn't hit the database.
func UserVerifier(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jwtCookie, err := r.Cookie("JWT")
		if err != nil {
			sugar.Debug(err)
			switch {
			case errors.Is(err, http.ErrNoCookie):
				http.Error(w, "No jwt cookie was provided", http.StatusUnauthorized)
			default:
				http.Error(w, "Couldn't read jwt cookie", http.StatusInternalServerError)
			}
			return
		}

		userToken, err := jwt.VerifyToken(jwtCookie.Value)
		if err != nil {
			sugar.Debug(err)
			http.Error(w, "Couldn't verify JWT", http.StatusUnauthorized)
			return
		}

		found, err := userExists(userToken.UserID, sugar)
		if err != nil {
			sugar.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
			return
		}

		// the account is gone but the client kept its token; drop the cookie
		if !found {
			http.SetCookie(w, &http.Cookie{
				Name:     "JWT",
				Value:    "",
				Path:     "/",
				Expires:  time.Unix(0, 0),
				HttpOnly: true,
			})
			http.Error(w, "", http.StatusUnauthorized)
			return
		}

		// renew the token once it's older than 15 minutes
		if time.Now().UTC().Sub(userToken.IssuedAt.Time) >= 15*time.Minute {
			updatedCookie, err := jwt.CreateToken(userToken.Remember, userToken.UserID)
			if err != nil {
				sugar.Error(err)
				http.Error(w, "Couldn't renew cookie", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &updatedCookie)
		}

		ctx := context.WithValue(r.Context(), UserIDKeyType{}, userToken.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userExists(id int64, sugar *zap.SugaredLogger) (bool, error) {
	key := userExistsKey(id)

	value, err := keyValue.Get(key)
	if err != nil {
		return false, err
	}
	if value == "y" {
		return true, nil
	}

	var found bool
	if err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", id).Scan(&found); err != nil {
		return false, err
	}

	if found {
		if err := keyValue.Set(key, "y", 15*time.Minute); err != nil {
			return false, err
		}
	}
	return found, nil
}
