package handlers

import (
	"encoding/json"
	"net/http"

	"channelchat-backend/internal/apperr"
	"channelchat-backend/internal/hub"
	"channelchat-backend/internal/ingest"
	"channelchat-backend/internal/models"
)

// CreateMessage runs the ingestion pipeline: authorize, validate, persist,
// then broadcast to the channel's live connections.
func CreateMessage(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathID(r, "channelID")
	if err != nil {
		writeError(w, err)
		return
	}

	var input ingest.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	msg, err := pipeline.Ingest(r.Context(), channelID, userID(r), input)
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, msg)
}

func GetMessageList(w http.ResponseWriter, r *http.Request) {
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

	var list []models.Message
	if author := r.URL.Query().Get("authorID"); author != "" {
		authorID, parseErr := parseID(author)
		if parseErr != nil {
			writeError(w, parseErr)
			return
		}
		list, err = messages.ListByAuthorInChannel(r.Context(), channelID, authorID, limit, offset)
	} else {
		list, err = messages.ListByChannel(r.Context(), channelID, limit, offset)
	}
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	respondJSON(w, http.StatusOK, list)
}

func GetMessage(w http.ResponseWriter, r *http.Request) {
	messageID, err := pathID(r, "messageID")
	if err != nil {
		writeError(w, err)
		return
	}

	msg, err := messages.Get(r.Context(), messageID)
	if err != nil {
		writeError(w, err)
		return
	}

	// reading a message requires membership in its channel
	isMember, err := authority.IsMember(r.Context(), userID(r), msg.ChannelID)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}
	if !isMember {
		writeError(w, apperr.Forbidden("not a member of channel %d", msg.ChannelID))
		return
	}

	respondJSON(w, http.StatusOK, msg)
}

func UpdateMessage(w http.ResponseWriter, r *http.Request) {
	messageID, err := pathID(r, "messageID")
	if err != nil {
		writeError(w, err)
		return
	}

	type Update struct {
		Content string `json:"content"`
	}

	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}
	if update.Content == "" {
		writeError(w, apperr.BadRequest("content must not be empty"))
		return
	}

	msg, err := messages.Get(r.Context(), messageID)
	if err != nil {
		writeError(w, err)
		return
	}
	if msg.AuthorID != userID(r) {
		writeError(w, apperr.Forbidden("only the author may edit message %d", messageID))
		return
	}
	if msg.Type != models.TypeText {
		writeError(w, apperr.BadRequest("only text messages can be edited"))
		return
	}

	updated, err := messages.UpdateContent(r.Context(), messageID, update.Content)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	broadcastEvent(updated.ChannelID, hub.MessageEdited, updated)
	respondJSON(w, http.StatusOK, updated)
}

func DeleteMessage(w http.ResponseWriter, r *http.Request) {
	messageID, err := pathID(r, "messageID")
	if err != nil {
		writeError(w, err)
		return
	}

	msg, err := messages.Get(r.Context(), messageID)
	if err != nil {
		writeError(w, err)
		return
	}
	if msg.AuthorID != userID(r) {
		writeError(w, apperr.Forbidden("only the author may delete message %d", messageID))
		return
	}

	if err := messages.Delete(r.Context(), messageID); err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	broadcastEvent(msg.ChannelID, hub.MessageDeleted, map[string]any{"messageID": msg.ID, "channelID": msg.ChannelID})
	w.WriteHeader(http.StatusOK)
}

// DeleteChannelMessages clears a channel's whole history; owner only.
func DeleteChannelMessages(w http.ResponseWriter, r *http.Request) {
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
		writeError(w, apperr.Forbidden("only the owner may clear channel %d", channelID))
		return
	}

	if err := messages.DeleteByChannel(r.Context(), channelID); err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	broadcastEvent(channelID, hub.MessagesCleared, map[string]any{"channelID": channelID})
	w.WriteHeader(http.StatusOK)
}
