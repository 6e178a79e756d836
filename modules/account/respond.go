package account

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/patshala/backend/auth"
	"github.com/patshala/backend/pkg/jwt"
	"github.com/patshala/backend/pkg/logger"
	"github.com/patshala/backend/pkg/validator"
)

// Client-facing messages. The wording is part of the API contract; frontend
// code matches on some of these strings.
const (
	msgRegistered    = "Registration successful"
	msgOTPSent       = "OTP sent to your email"
	msgOTPVerified   = "OTP verified successfully"
	msgLoginSuccess  = "Login successful"
	msgEmailSent     = "Email sent"
	msgPasswordReset = "Password reset successful"
	msgValidToken    = "Valid token"

	msgEnrollmentMatch    = "Enrollment number and name match"
	msgEnrollmentMismatch = "The enrollment number exists, but the name does not match"
	msgEnrollmentUnknown  = "Enrollment ID does not exist"

	msgEmailIncorrect    = "Invalid Credentials! Email is incorrect."
	msgPasswordIncorrect = "Invalid Credentials! Password is incorrect."
	msgInvalidToken      = "Invalid or expired token"
	msgInvalidOTP        = "Invalid or expired OTP"
	msgOTPNotExpired     = "Current OTP has not expired yet"
	msgInvalidResetToken = "Invalid or expired reset token"
	msgNotEnrolled       = "Enrollment details do not match our records"
	msgNotFound          = "Record not found"
	msgInvalidBody       = "Invalid request body"
	msgUnauthorized      = "Unauthorized"
	msgServerError       = "Server error"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg})
}

// writeError maps domain errors onto the HTTP contract. notFoundStatus
// distinguishes the check-* reads (404) from flows where a vanished record
// is a plain 400.
func writeError(w http.ResponseWriter, log *slog.Logger, err error, notFoundStatus int) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve.Fields()))
		for _, field := range ve.Fields() {
			fields[field] = ve.Get(field)[0]
		}
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}

	switch {
	case errors.Is(err, auth.ErrEmailTakenByStudent):
		writeMsg(w, http.StatusConflict, "Student with this email already exists")
	case errors.Is(err, auth.ErrEmailTakenByTeacher):
		writeMsg(w, http.StatusConflict, "Teacher with this email already exists")
	case errors.Is(err, auth.ErrExternalIDTakenByStudent):
		writeMsg(w, http.StatusConflict, "Student with this ID already exists")
	case errors.Is(err, auth.ErrExternalIDTakenByTeacher):
		writeMsg(w, http.StatusConflict, "Teacher with this ID already exists")
	case errors.Is(err, auth.ErrEmailNotFound):
		writeJSON(w, http.StatusBadRequest, map[string]string{"email": msgEmailIncorrect})
	case errors.Is(err, auth.ErrPasswordMismatch):
		writeJSON(w, http.StatusBadRequest, map[string]string{"password": msgPasswordIncorrect})
	case errors.Is(err, auth.ErrMissingAuthHeader), errors.Is(err, auth.ErrMalformedAuthHeader):
		writeMsg(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, jwt.ErrExpiredToken), errors.Is(err, jwt.ErrInvalidToken):
		writeMsg(w, http.StatusBadRequest, msgInvalidToken)
	case errors.Is(err, auth.ErrInvalidOTP):
		writeMsg(w, http.StatusBadRequest, msgInvalidOTP)
	case errors.Is(err, auth.ErrOTPStillValid):
		writeMsg(w, http.StatusBadRequest, msgOTPNotExpired)
	case errors.Is(err, auth.ErrResetTokenInvalid):
		writeMsg(w, http.StatusBadRequest, msgInvalidResetToken)
	case errors.Is(err, auth.ErrNotEnrolled):
		writeMsg(w, http.StatusForbidden, msgNotEnrolled)
	case errors.Is(err, auth.ErrNotFound):
		writeMsg(w, notFoundStatus, msgNotFound)
	default:
		log.Error("request failed",
			logger.Component("account"),
			logger.Error(err),
		)
		writeMsg(w, http.StatusInternalServerError, msgServerError)
	}
}
