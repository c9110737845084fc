package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"channelchat-backend/internal/jwt"
	"channelchat-backend/internal/models"
	"channelchat-backend/internal/snowflake"
	ourvalidator "channelchat-backend/internal/validator"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

func Login(w http.ResponseWriter, r *http.Request) {
	type Login struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var login Login
	err := json.NewDecoder(r.Body).Decode(&login)
	if err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	var id int64
	var password []byte
	err = db.QueryRow("SELECT id, password FROM users WHERE email = ?", login.Email).Scan(&id, &password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sugar.Debug(err)
			http.Error(w, "", http.StatusUnauthorized)
		} else {
			sugar.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
		}
		return
	}

	err = bcrypt.CompareHashAndPassword(password, []byte(login.Password))
	if err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusUnauthorized)
		return
	}

	cookie, err := jwt.CreateToken(r.URL.Query().Get("rememberMe") == "true", id)
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &cookie)

	// the raw token doubles as the realtime handshake credential
	respondJSON(w, http.StatusOK, map[string]string{"token": cookie.Value})
}

func Register(w http.ResponseWriter, r *http.Request) {
	registerErrors := make(map[string]string)

	type Registration struct {
		Username        string `json:"username"`
		Email           string `json:"email"`
		Password        string `json:"password" validate:"eqfield=ConfirmPassword,min=6"`
		ConfirmPassword string `json:"confirmPassword"`
	}

	var registration Registration
	err := json.NewDecoder(r.Body).Decode(&registration)
	if err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	err = validate.Struct(registration)
	if err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) {
			for _, e := range validateErrs {
				registerErrors[e.Field()] = e.Tag()
			}
		} else {
			sugar.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
			return
		}
	}

	if err := ourvalidator.Username(registration.Username); err != nil {
		registerErrors["Username"] = err.Error()
	}
	if err := ourvalidator.Email(registration.Email); err != nil {
		registerErrors["Email"] = err.Error()
	}
	if err := ourvalidator.Password(registration.Password); err != nil {
		registerErrors["Password"] = err.Error()
	}

	if len(registerErrors) != 0 {
		// sends back 400 with the form field errors
		respondJSON(w, http.StatusBadRequest, registerErrors)
		return
	}

	var taken bool
	err = db.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE username = ? OR email = ?)",
		registration.Username, registration.Email).Scan(&taken)
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	if taken {
		http.Error(w, "Username or email is already registered", http.StatusConflict)
		return
	}

	id, err := snowflake.Generate()
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(registration.Password), bcrypt.DefaultCost)
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	user := models.User{
		ID:        id,
		Username:  registration.Username,
		Email:     registration.Email,
		Status:    models.UserActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = db.Exec("INSERT INTO users VALUES(?, ?, ?, ?, '', '', '', '', ?, ?, ?)",
		user.ID, user.Username, user.Email, passwordHash, user.Status, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	cookie, err := jwt.CreateToken(false, id)
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &cookie)

	respondJSON(w, http.StatusCreated, user)
}
