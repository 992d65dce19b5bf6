package dto

import "time"

type ContactRequest struct {
	FirstName      string  `json:"first_name" binding:"required,max=50"`
	LastName       string  `json:"last_name" binding:"required,max=50"`
	Email          string  `json:"email" binding:"required,email,max=100"`
	Phone          string  `json:"phone" binding:"required,max=20"`
	Birthday       string  `json:"birthday" binding:"required,datetime=2006-01-02"`
	AdditionalInfo *string `json:"additional_info" binding:"omitempty,max=250"`
}

// ContactUpdateRequest is a partial update: nil fields are left unchanged.
type ContactUpdateRequest struct {
	FirstName      *string `json:"first_name" binding:"omitempty,min=1,max=50"`
	LastName       *string `json:"last_name" binding:"omitempty,min=1,max=50"`
	Email          *string `json:"email" binding:"omitempty,email,max=100"`
	Phone          *string `json:"phone" binding:"omitempty,min=1,max=20"`
	Birthday       *string `json:"birthday" binding:"omitempty,datetime=2006-01-02"`
	AdditionalInfo *string `json:"additional_info" binding:"omitempty,max=250"`
}

type ContactResponse struct {
	ID             uint      `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Birthday       string    `json:"birthday"`
	AdditionalInfo *string   `json:"additional_info"`
	CreatedAt      time.Time `json:"created_at"`
	OwnerID        uint      `json:"owner_id"`
}

// ContactFilter holds the optional search terms of the list endpoint.
type ContactFilter struct {
	FirstName string `form:"first_name"`
	LastName  string `form:"last_name"`
	Email     string `form:"email"`
}
