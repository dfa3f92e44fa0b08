package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/GShadowBroker/library-server/middleware"
	"github.com/GShadowBroker/library-server/services"
	"github.com/GShadowBroker/library-server/utils/errors"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username       string `json:"username"`
		FavoriteGenre  string `json:"favoriteGenre"`
		Password       string `json:"password"`
		RepeatPassword string `json:"repeatPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	user, err := h.authService.Register(r.Context(), input.Username, input.FavoriteGenre, input.Password, input.RepeatPassword)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	token, err := h.authService.Login(r.Context(), input.Username, input.Password)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, token)
}
