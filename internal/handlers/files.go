package handlers

import (
	"net/http"
	"strconv"
	"time"

	"channelchat-backend/internal/apperr"
	"channelchat-backend/internal/models"

	"github.com/go-chi/chi/v5"
)

const maxUploadBytes = 64 << 20 // 64 MiB

// UploadFile streams a multipart upload into the blob store and hands back
// the file descriptor the client then posts as a message.
func UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	formFile, header, err := r.FormFile("file")
	if err != nil {
		sugar.Debug(err)
		http.Error(w, "Missing file form field", http.StatusBadRequest)
		return
	}
	defer formFile.Close()

	key, contentType, err := files.Store(formFile, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, models.FileDescriptor{
		Key:         key,
		ContentType: contentType,
		FileName:    header.Filename,
	})
}

// GetMessageFileURL issues a time-limited signed URL for a file message's
// attachment. Gated by the same membership check as message reads, so
// knowing a message id is never enough.
func GetMessageFileURL(w http.ResponseWriter, r *http.Request) {
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
	if msg.File == nil {
		writeError(w, apperr.BadRequest("message %d has no file attachment", messageID))
		return
	}

	isMember, err := authority.IsMember(r.Context(), userID(r), msg.ChannelID)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}
	if !isMember {
		writeError(w, apperr.Forbidden("not a member of channel %d", msg.ChannelID))
		return
	}

	ttl := time.Duration(cfg.SignedURLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}

	accessURL, err := files.SignedURL(msg.File.Key, ttl)
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"accessURL": accessURL})
}

// ServeFile serves a stored blob after checking the URL's expiry and
// signature. No session is required; the signature is the authorization.
func ServeFile(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	expires, err := strconv.ParseInt(r.URL.Query().Get("exp"), 10, 64)
	if err != nil {
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	if err := files.Verify(key, expires, r.URL.Query().Get("sig")); err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusForbidden)
		return
	}

	path, err := files.Path(key)
	if err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	http.ServeFile(w, r, path)
}
