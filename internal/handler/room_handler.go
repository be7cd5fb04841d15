/*
Package handler provides HTTP handler functions for room status checks.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"coderoom/internal/pkg/resp"
)

// RoomStatus is the response body of a successful room existence check.
type RoomStatus struct {
	Exists     bool   `json:"exists"`
	Language   string `json:"language"`
	UsersCount int    `json:"usersCount"`
}

// HandleGetRoom reports whether a room currently has state, and if so its
// language and member count. The check is read-only: it never creates the room.
func HandleGetRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")

		if !deps.Registry.Exists(roomID) {
			resp.RespondJSON(w, r, http.StatusNotFound, struct {
				Exists bool `json:"exists"`
			}{Exists: false})
			return
		}

		snapshot := deps.Registry.GetOrCreate(roomID)

		resp.RespondJSON(w, r, http.StatusOK, RoomStatus{
			Exists:     true,
			Language:   snapshot.Language,
			UsersCount: len(snapshot.Users),
		})
	}
}
