// Package services defines the business logic for polls, votes, and vote
// confirmation. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages or HTTP status codes is performed
// at the handler layer.
package services

import "errors"

// Poll-related errors.
var (
	// ErrPollNotFound indicates that the requested poll does not exist.
	ErrPollNotFound = errors.New("poll not found")

	// ErrPollClosed is returned when a vote targets a poll that is
	// inactive or past its expiry.
	ErrPollClosed = errors.New("poll is closed")

	// ErrInvalidQuestion is returned when a poll question is empty or
	// shorter than the minimum length after sanitization.
	ErrInvalidQuestion = errors.New("question must be at least 10 characters")

	// ErrInvalidOptions is returned when a poll does not carry between 2
	// and 10 distinct options of at least 2 characters each.
	ErrInvalidOptions = errors.New("polls need 2 to 10 distinct options of at least 2 characters")
)

// Vote-related errors.
var (
	// ErrOptionNotFound indicates that the chosen option does not exist or
	// does not belong to the given poll.
	ErrOptionNotFound = errors.New("option not found")

	// ErrInvalidEmail is returned when a voter email fails syntax
	// validation.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrAlreadyVoted is returned when a vote already exists for the
	// (poll, email) pair, whether or not it was confirmed.
	ErrAlreadyVoted = errors.New("a vote already exists for this email")

	// ErrVoteNotFound indicates that a confirmation token references a
	// vote that no longer exists.
	ErrVoteNotFound = errors.New("vote not found")

	// ErrAlreadyConfirmed is returned when a confirmation link is used a
	// second time.
	ErrAlreadyConfirmed = errors.New("vote already confirmed")

	// ErrTokenExpired is returned when the confirmation link is past its
	// validity window.
	ErrTokenExpired = errors.New("confirmation link expired")

	// ErrTokenInvalid is returned when the confirmation link is malformed
	// or its signature does not verify.
	ErrTokenInvalid = errors.New("confirmation link invalid")

	// ErrMailFailure is returned when the confirmation email could not be
	// dispatched; the pending vote is rolled back so the voter can retry.
	ErrMailFailure = errors.New("confirmation email could not be sent")
)
