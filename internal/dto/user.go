package dto

import "time"

type SignupRequest struct {
	Username string `json:"username" binding:"required,min=5,max=16"`
	Email    string `json:"email" binding:"required,email,max=250"`
	Password string `json:"password" binding:"required,min=6,max=10"`
}

// LoginRequest follows the OAuth2 password form: username carries the email.
type LoginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type RequestEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	Avatar    *string   `json:"avatar"`
}

// SessionSnapshot is the cached view of a user. It never holds the password
// hash or the refresh token.
type SessionSnapshot struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Avatar    *string   `json:"avatar"`
	Confirmed bool      `json:"confirmed"`
	CreatedAt time.Time `json:"created_at"`
}

func (s SessionSnapshot) ToResponse() UserResponse {
	return UserResponse{
		ID:        s.ID,
		Username:  s.Username,
		Email:     s.Email,
		CreatedAt: s.CreatedAt,
		Avatar:    s.Avatar,
	}
}

type MessageResponse struct {
	Message string `json:"message"`
}
