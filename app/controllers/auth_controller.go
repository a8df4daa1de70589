package controllers

import (
	"encoding/json"
	"net/http"

	"rigfleet/app/dto"
	jwtutil "rigfleet/app/jwt"
	"rigfleet/app/services"
)

type AuthController struct {
	Users  *services.UserService
	Signer *jwtutil.Signer
}

func NewAuthController(users *services.UserService, signer *jwtutil.Signer) *AuthController {
	return &AuthController{Users: users, Signer: signer}
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "missing credentials"})
		return
	}
	u, err := c.Users.ValidateCredentials(req.Username, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid credentials"})
		return
	}
	token, err := c.Signer.Sign(u.ID, u.Username, u.Role)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "token error"})
		return
	}
	writeJSON(w, http.StatusOK, dto.TokenResponse{AccessToken: token})
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

func (c *AuthController) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "missing credentials"})
		return
	}
	if err := c.Users.CreateUser(req.Username, req.Password, req.Role); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
