package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Dosada05/stream-follow/models"
	"github.com/Dosada05/stream-follow/services"
	"github.com/golang-jwt/jwt/v4"
)

type AuthHandler struct {
	authService services.AuthService
	jwtSecret   []byte
}

func NewAuthHandler(authService services.AuthService, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtSecret:   []byte(jwtSecret),
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput

	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.Email == "" || input.Password == "" || input.DisplayName == "" {
		badRequestResponse(w, r, errors.New("display name, email, and password are required"))
		return
	}

	user, err := h.authService.Register(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"user": user,
	}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.Email == "" || input.Password == "" {
		badRequestResponse(w, r, errors.New("email and password are required"))
		return
	}

	user, err := h.authService.Login(r.Context(), services.LoginInput{
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.writeToken(w, r, user.ID)
}

// ProviderCallback finishes a third-party sign-in: the OAuth/OpenID layer in
// front of this endpoint has already verified the identity and posts the
// resulting profile here.
func (h *AuthHandler) ProviderCallback(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Provider      string  `json:"provider"`
		ProviderID    string  `json:"provider_id"`
		DisplayName   string  `json:"display_name"`
		AvatarURL     *string `json:"avatar_url,omitempty"`
		AvatarFullURL *string `json:"avatar_full_url,omitempty"`
		AccessToken   *string `json:"access_token,omitempty"`
	}

	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	user, err := h.authService.LoginWithProvider(r.Context(), services.ProviderLoginInput{
		Provider:      models.Provider(input.Provider),
		ProviderID:    input.ProviderID,
		DisplayName:   input.DisplayName,
		AvatarURL:     input.AvatarURL,
		AvatarFullURL: input.AvatarFullURL,
		AccessToken:   input.AccessToken,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.writeToken(w, r, user.ID)
}

func (h *AuthHandler) writeToken(w http.ResponseWriter, r *http.Request, userID int) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(time.Hour * 24).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(h.jwtSecret)
	if err != nil {
		serverErrorResponse(w, r, fmt.Errorf("failed to sign token: %w", err))
		return
	}

	response := jsonResponse{
		"token": tokenString,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
