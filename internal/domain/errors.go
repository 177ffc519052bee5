package domain

import "errors"

var (
	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrCourseNotFound is returned when a referenced course does not exist.
	ErrCourseNotFound = errors.New("course not found")
	// ErrMCQNotFound is returned when a referenced question does not exist.
	ErrMCQNotFound = errors.New("mcq not found")
	// ErrEmailTaken indicates a signup with an already-registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials indicates a login with a wrong password.
	ErrInvalidCredentials = errors.New("the password is incorrect")

	// ErrTooFewOptions indicates an MCQ write with fewer than two options.
	ErrTooFewOptions = errors.New("at least two options must be provided")
	// ErrNoCorrectOption indicates an MCQ write with an empty correct set.
	ErrNoCorrectOption = errors.New("at least one correct option must be provided")
	// ErrCorrectOptionRange indicates a correct index outside the option list.
	ErrCorrectOptionRange = errors.New("correct option index out of range")
)
