package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"channelchat-backend/internal/apperr"
	"channelchat-backend/internal/models"
)

func GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := fetchUser(userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func GetUser(w http.ResponseWriter, r *http.Request) {
	requestedID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := fetchUser(requestedID)
	if err != nil {
		writeError(w, err)
		return
	}

	// other users don't get to see the email address
	user.Email = ""
	respondJSON(w, http.StatusOK, user)
}

func UpdateCurrentUser(w http.ResponseWriter, r *http.Request) {
	type Update struct {
		FirstName      *string `json:"firstName"`
		LastName       *string `json:"lastName"`
		Bio            *string `json:"bio"`
		ProfilePicture *string `json:"profilePicture"`
	}

	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	id := userID(r)

	set := func(column string, value *string) error {
		if value == nil {
			return nil
		}
		_, err := db.Exec("UPDATE users SET "+column+" = ?, updated_at = ? WHERE id = ?",
			*value, time.Now().UTC(), id)
		return err
	}

	for column, value := range map[string]*string{
		"first_name":      update.FirstName,
		"last_name":       update.LastName,
		"bio":             update.Bio,
		"profile_picture": update.ProfilePicture,
	} {
		if err := set(column, value); err != nil {
			sugar.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
			return
		}
	}

	user, err := fetchUser(id)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func fetchUser(id int64) (models.User, error) {
	var user models.User
	err := db.QueryRow(
		"SELECT id, username, email, first_name, last_name, bio, profile_picture, status, created_at, updated_at FROM users WHERE id = ?",
		id).Scan(&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName,
		&user.Bio, &user.ProfilePicture, &user.Status, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.NotFound("user %d", id)
	}
	return user, err
}
