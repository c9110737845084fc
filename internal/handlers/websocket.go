package handlers

import (
	"net/http"
)

// HandleWebSocket hands the connection to the realtime gateway, which does
// its own credential check from the token query parameter (websocket clients
// can't set headers on the handshake).
func HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathID(r, "channelID")
	if err != nil {
		writeError(w, err)
		return
	}

	realtime.Handle(w, r, channelID)
}
