package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/GShadowBroker/library-server/middleware"
	"github.com/GShadowBroker/library-server/models"
	"github.com/GShadowBroker/library-server/services"
	"github.com/GShadowBroker/library-server/utils/errors"
)

type FriendHandler struct {
	friendService *services.FriendService
}

func NewFriendHandler(friendService *services.FriendService) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

// Me returns the authenticated user, or null for anonymous requests.
func (h *FriendHandler) Me(w http.ResponseWriter, r *http.Request) {
	me, err := h.friendService.Me(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, me)
}

func (h *FriendHandler) AllUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.friendService.AllUsers(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *FriendHandler) RequestFriend(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.friendService.RequestFriend)
}

func (h *FriendHandler) AcceptFriend(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.friendService.AcceptFriend)
}

func (h *FriendHandler) RejectFriend(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.friendService.RejectFriend)
}

func (h *FriendHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) (*models.User, error)) {
	var input struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.ID == "" {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	user, err := op(r.Context(), input.ID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
