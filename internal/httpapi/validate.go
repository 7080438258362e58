package httpapi

import (
	"net/mail"
	"strings"
	"unicode"
)

// Input validation and sanitation run here, before the auth core, so the
// core can assume well-formed input.

const minPasswordLength = 8

func validEmail(email string) bool {
	if email == "" || email != strings.TrimSpace(email) {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	// mail.ParseAddress accepts local-only addresses; require a domain dot.
	at := strings.LastIndexByte(email, '@')
	return at > 0 && strings.Contains(email[at+1:], ".")
}

// validPassword enforces the minimum-length-and-character-class policy:
// at least one lowercase letter, one uppercase letter and one digit.
func validPassword(password string) bool {
	if len(password) < minPasswordLength {
		return false
	}
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

func validateRegistration(req *registerRequest) []fieldError {
	req.Email = strings.TrimSpace(req.Email)
	var details []fieldError
	if !validEmail(req.Email) {
		details = append(details, fieldError{Field: "email", Message: "Please provide a valid email address"})
	}
	if !validPassword(req.Password) {
		details = append(details, fieldError{
			Field:   "password",
			Message: "Password must be at least 8 characters long and contain at least one lowercase letter, one uppercase letter, and one number",
		})
	}
	if req.ConfirmPassword != req.Password {
		details = append(details, fieldError{Field: "confirmPassword", Message: "Password confirmation does not match password"})
	}
	return details
}

func validateLogin(req *loginRequest) []fieldError {
	req.Email = strings.TrimSpace(req.Email)
	var details []fieldError
	if !validEmail(req.Email) {
		details = append(details, fieldError{Field: "email", Message: "Please provide a valid email address"})
	}
	if req.Password == "" {
		details = append(details, fieldError{Field: "password", Message: "Password is required"})
	}
	return details
}

func validatePasswordChange(req *changePasswordRequest) []fieldError {
	var details []fieldError
	if req.CurrentPassword == "" {
		details = append(details, fieldError{Field: "currentPassword", Message: "Current password is required"})
	}
	if !validPassword(req.NewPassword) {
		details = append(details, fieldError{
			Field:   "newPassword",
			Message: "New password must be at least 8 characters long and contain at least one lowercase letter, one uppercase letter, and one number",
		})
	}
	if req.ConfirmNewPassword != req.NewPassword {
		details = append(details, fieldError{Field: "confirmNewPassword", Message: "Password confirmation does not match new password"})
	}
	return details
}
