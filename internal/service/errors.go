package service

import "errors"

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidToken           = errors.New("invalid or expired token")
	ErrInvalidOtp             = errors.New("invalid otp")
	ErrOtpRequired            = errors.New("current otp required to enable otp")
	ErrAlreadyExists          = errors.New("already exists")
	ErrForbidden              = errors.New("forbidden")
	ErrNotFound               = errors.New("not found")
	ErrGone                   = errors.New("gone")
	ErrUserNotFound           = errors.New("user not found")
	ErrCurrentPasswordMissing = errors.New("current password required")
	ErrCurrentPasswordWrong   = errors.New("does not match the current password")

	// ErrAlreadyInSchool and ErrNonTeacherAccount are invitation-acceptance
	// conflicts. They are safe to surface: the caller already holds a valid
	// invitation token for the email in question.
	ErrAlreadyInSchool   = errors.New("already in a school")
	ErrNonTeacherAccount = errors.New("already registered as a non-teacher user")
	ErrLastAdminInSchool = errors.New("last admin teacher cannot leave the school")
	ErrEmailNotVerified  = errors.New("email not verified")
)
