package handlers

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/pitchside/season-engine/utils"
)

// AuthHandler issues operator tokens. There is a single operator identity
// configured through the environment; the engine has no user accounts.
type AuthHandler struct {
	adminUser     string
	adminPassHash string
	jwtSecret     []byte
	tokenTTL      time.Duration
}

func NewAuthHandler(adminUser, adminPassHash, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		adminUser:     adminUser,
		adminPassHash: adminPassHash,
		jwtSecret:     []byte(jwtSecret),
		tokenTTL:      24 * time.Hour,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Username == "" || input.Password == "" {
		badRequestResponse(w, r, errors.New("username and password are required"))
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(input.Username), []byte(h.adminUser)) == 1
	if !userOK || !utils.CheckPasswordHash(input.Password, h.adminPassHash) {
		unauthorizedResponse(w, r, "invalid credentials")
		return
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  input.Username,
		"role": "operator",
		"exp":  now.Add(h.tokenTTL).Unix(),
		"iat":  now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(h.jwtSecret)
	if err != nil {
		serverErrorResponse(w, r, fmt.Errorf("failed to sign token: %w", err))
		return
	}

	response := jsonResponse{"token": tokenString}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
