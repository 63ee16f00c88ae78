package dto

import (
	"strings"
)

// -------- Users --------

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100,person_name"`
	Email    string `json:"email" validate:"required,max=254,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

func (r *RegisterRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	return Validate(r)
}

type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

func (r *DeleteAccountRequest) Validate() error {
	return Validate(r)
}

// -------- Core auth --------

type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

func (r *LoginRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	return Validate(r)
}

// RefreshToken may be empty when the HttpOnly cookie carries it.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// -------- Password reset --------

// Step A: request reset (the response never reveals whether the email exists)
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,max=254,email"`
}

func (r *PasswordResetRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	return Validate(r)
}

// Step B: confirm reset
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

func (r *PasswordResetConfirmRequest) Validate() error {
	return Validate(r)
}
