package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"channelchat-backend/internal/apperr"
	"channelchat-backend/internal/hub"
	"channelchat-backend/internal/models"
	"channelchat-backend/internal/snowflake"
)

func CreateChannel(w http.ResponseWriter, r *http.Request) {
	type Create struct {
		Name        string `json:"name" validate:"required,max=64"`
		Description string `json:"description" validate:"max=1024"`
	}

	var create Create
	if err := json.NewDecoder(r.Body).Decode(&create); err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(create); err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	channelID, err := snowflake.Generate()
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	channel := models.Channel{
		ID:          channelID,
		OwnerID:     userID(r),
		Name:        create.Name,
		Description: create.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// the owner's membership row goes in with the channel; ownership alone
	// grants nothing
	tx, err := db.Begin()
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec("INSERT INTO channels VALUES(?, ?, ?, ?, ?, ?)",
		channel.ID, channel.OwnerID, channel.Name, channel.Description, channel.CreatedAt, channel.UpdatedAt)
	if err == nil {
		_, err = tx.Exec("INSERT INTO memberships VALUES(?, ?, ?)", channel.OwnerID, channel.ID, now)
	}
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, channel)
}

func GetChannelList(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	rows, err := db.Query("SELECT id, owner_id, name, description, created_at, updated_at FROM channels ORDER BY name LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	channels, err := collectChannels(rows)
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, channels)
}

func GetMyChannels(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	rows, err := db.Query(`
		SELECT c.id, c.owner_id, c.name, c.description, c.created_at, c.updated_at
		FROM channels c
		JOIN memberships m ON c.id = m.channel_id
		WHERE m.user_id = ?
		ORDER BY c.name LIMIT ? OFFSET ?`, userID(r), limit, offset)
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	channels, err := collectChannels(rows)
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, channels)
}

func GetChannel(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathID(r, "channelID")
	if err != nil {
		writeError(w, err)
		return
	}

	channel, err := fetchChannel(channelID)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, channel)
}

func UpdateChannel(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathID(r, "channelID")
	if err != nil {
		writeError(w, err)
		return
	}

	channel, err := fetchChannel(channelID)
	if err != nil {
		writeError(w, err)
		return
	}
	if channel.OwnerID != userID(r) {
		writeError(w, apperr.Forbidden("only the owner may update channel %d", channelID))
		return
	}

	// same bounds as channel creation; omitted fields stay untouched
	type Update struct {
		Name        *string `json:"name" validate:"omitnil,min=1,max=64"`
		Description *string `json:"description" validate:"omitnil,max=1024"`
	}

	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(update); err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	if update.Name != nil {
		channel.Name = *update.Name
	}
	if update.Description != nil {
		channel.Description = *update.Description
	}
	channel.UpdatedAt = time.Now().UTC()

	_, err = db.Exec("UPDATE channels SET name = ?, description = ?, updated_at = ? WHERE id = ?",
		channel.Name, channel.Description, channel.UpdatedAt, channelID)
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	broadcastEvent(channelID, hub.ChannelEdited, channel)
	respondJSON(w, http.StatusOK, channel)
}

// DeleteChannel removes the channel; its memberships and messages go with it
// through the schema's cascading foreign keys.
func DeleteChannel(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathID(r, "channelID")
	if err != nil {
		writeError(w, err)
		return
	}

	channel, err := fetchChannel(channelID)
	if err != nil {
		writeError(w, err)
		return
	}
	if channel.OwnerID != userID(r) {
		writeError(w, apperr.Forbidden("only the owner may delete channel %d", channelID))
		return
	}

	// notify while the members are still members, then let the cascade run
	broadcastEvent(channelID, hub.ChannelDeleted, map[string]string{"channelID": strconv.FormatInt(channelID, 10)})

	if _, err := db.Exec("DELETE FROM channels WHERE id = ?", channelID); err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func TransferChannelOwner(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathID(r, "channelID")
	if err != nil {
		writeError(w, err)
		return
	}

	type Transfer struct {
		NewOwnerID int64 `json:"newOwnerID,string"`
	}

	var transfer Transfer
	if err := json.NewDecoder(r.Body).Decode(&transfer); err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	channel, err := fetchChannel(channelID)
	if err != nil {
		writeError(w, err)
		return
	}
	if channel.OwnerID != userID(r) {
		writeError(w, apperr.Forbidden("only the owner may transfer channel %d", channelID))
		return
	}

	if _, err := fetchUser(transfer.NewOwnerID); err != nil {
		writeError(w, err)
		return
	}

	// membership is the sole authorization artifact, so the incoming owner
	// must already hold a row
	isMember, err := authority.IsMember(r.Context(), transfer.NewOwnerID, channelID)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}
	if !isMember {
		writeError(w, apperr.BadRequest("new owner must be a member of channel %d", channelID))
		return
	}

	channel.OwnerID = transfer.NewOwnerID
	channel.UpdatedAt = time.Now().UTC()

	_, err = db.Exec("UPDATE channels SET owner_id = ?, updated_at = ? WHERE id = ?",
		channel.OwnerID, channel.UpdatedAt, channelID)
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	broadcastEvent(channelID, hub.ChannelEdited, channel)
	respondJSON(w, http.StatusOK, channel)
}

func JoinChannel(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathID(r, "channelID")
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := fetchChannel(channelID); err != nil {
		writeError(w, err)
		return
	}

	id := userID(r)

	isMember, err := authority.IsMember(r.Context(), id, channelID)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}
	if isMember {
		writeError(w, apperr.Conflict("user %d is already a member of channel %d", id, channelID))
		return
	}

	m := models.Membership{UserID: id, ChannelID: channelID, JoinedAt: time.Now().UTC()}
	if _, err := db.Exec("INSERT INTO memberships VALUES(?, ?, ?)", m.UserID, m.ChannelID, m.JoinedAt); err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, m)
}

func LeaveChannel(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathID(r, "channelID")
	if err != nil {
		writeError(w, err)
		return
	}

	channel, err := fetchChannel(channelID)
	if err != nil {
		writeError(w, err)
		return
	}

	id := userID(r)
	if channel.OwnerID == id {
		writeError(w, apperr.BadRequest("channel owner cannot leave; transfer ownership first"))
		return
	}

	result, err := db.Exec("DELETE FROM memberships WHERE user_id = ? AND channel_id = ?", id, channelID)
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	affected, err := result.RowsAffected()
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	if affected == 0 {
		writeError(w, apperr.NotFound("user %d is not a member of channel %d", id, channelID))
		return
	}

	authority.Invalidate(id, channelID)
	w.WriteHeader(http.StatusNoContent)
}

func GetChannelMembers(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathID(r, "channelID")
	if err != nil {
		writeError(w, err)
		return
	}

	isMember, err := authority.IsMember(r.Context(), userID(r), channelID)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}
	if !isMember {
		writeError(w, apperr.Forbidden("not a member of channel %d", channelID))
		return
	}

	limit, offset := pagination(r)

	rows, err := db.Query(`
		SELECT u.id, u.username, u.first_name, u.last_name, u.bio, u.profile_picture
		FROM users u
		JOIN memberships m ON u.id = m.user_id
		WHERE m.channel_id = ?
		ORDER BY u.username LIMIT ? OFFSET ?`, channelID, limit, offset)
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		err := rows.Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.Bio, &user.ProfilePicture)
		if err != nil {
			sugar.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
			return
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, users)
}

func fetchChannel(id int64) (models.Channel, error) {
	var channel models.Channel
	err := db.QueryRow("SELECT id, owner_id, name, description, created_at, updated_at FROM channels WHERE id = ?", id).
		Scan(&channel.ID, &channel.OwnerID, &channel.Name, &channel.Description, &channel.CreatedAt, &channel.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, apperr.NotFound("channel %d", id)
	}
	return channel, err
}

func collectChannels(rows *sql.Rows) ([]models.Channel, error) {
	defer rows.Close()

	channels := []models.Channel{}
	for rows.Next() {
		var channel models.Channel
		err := rows.Scan(&channel.ID, &channel.OwnerID, &channel.Name, &channel.Description, &channel.CreatedAt, &channel.UpdatedAt)
		if err != nil {
			return nil, err
		}
		channels = append(channels, channel)
	}
	return channels, rows.Err()
}

func broadcastEvent(channelID int64, event string, data any) {
	payload, err := hub.Event(event, data)
	if err != nil {
		sugar.Error(err)
		return
	}
	registry.Broadcast(channelID, payload)
}
