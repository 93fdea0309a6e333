// This file implements VoteService, the application-level component that
// owns the vote lifecycle: submission (insert an unconfirmed vote and email
// a confirmation link) and confirmation (validate the link, flip the vote
// to confirmed, and increment the option tally atomically).
//
// The one-vote-per-email rule is not checked here with a read: the insert
// simply runs into the (poll_id, email) unique constraint and the database
// arbitrates, which also settles races between concurrent submissions.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// poll identifiers but never voter emails.
package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/zamapoll/go-poll-backend/internal/domain"
	"github.com/zamapoll/go-poll-backend/internal/mail"
	"github.com/zamapoll/go-poll-backend/internal/repo"
	"github.com/zamapoll/go-poll-backend/internal/sanitize"
	"github.com/zamapoll/go-poll-backend/internal/token"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// VoteService coordinates vote persistence, confirmation tokens, and mail
// dispatch.
type VoteService struct {
	// DB is the GORM handle used for all vote operations.
	DB *gorm.DB
	// Tokens signs and verifies confirmation links.
	Tokens *token.Issuer
	// Mailer delivers the confirmation email.
	Mailer mail.Mailer
	// ConfirmBaseURL is the absolute URL of the confirmation endpoint;
	// the signed token is appended as the "token" query parameter.
	ConfirmBaseURL string
}

// Submit records an unconfirmed vote and dispatches the confirmation email.
//
// Semantics and validation:
//   - email must pass syntax validation; it is lowercased before storage so
//     uniqueness is case-insensitive.
//   - The poll must exist and be open (active, not expired); otherwise
//     ErrPollNotFound / ErrPollClosed.
//   - optionID must belong to the poll; otherwise ErrOptionNotFound.
//   - A second vote for the same (poll, email) fails the unique constraint
//     and yields ErrAlreadyVoted, regardless of confirmation state.
//   - When the confirmation email cannot be dispatched, the fresh vote row
//     is deleted again and ErrMailFailure is returned, so the voter is not
//     locked out by a mail outage.
func (s *VoteService) Submit(ctx context.Context, pollID string, optionID uint, email, voterIP string) (*domain.Vote, error) {
	tr := otel.Tracer("services/VoteService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("poll.id", pollID)),
	)
	defer span.End()

	email = sanitize.NormalizeEmail(email)
	if !sanitize.ValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	poll, err := repo.GetPoll(ctx, s.DB, pollID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPollNotFound
		}
		return nil, err
	}
	if !poll.Open(time.Now().UTC()) {
		return nil, ErrPollClosed
	}

	if _, err := repo.GetOption(ctx, s.DB, optionID, pollID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrOptionNotFound
		}
		return nil, err
	}

	vote, err := repo.CreateVote(ctx, s.DB, pollID, email, optionID, voterIP)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicate(err) {
			return nil, ErrAlreadyVoted
		}
		return nil, err
	}

	tok, err := s.Tokens.Sign(vote.ID, pollID, email, vote.CreatedAt)
	if err != nil {
		_ = repo.DeleteVote(ctx, s.DB, vote.ID)
		return nil, err
	}
	confirmURL := s.ConfirmBaseURL + "?token=" + url.QueryEscape(tok)

	if err := s.Mailer.SendConfirmation(ctx, email, poll.Question, confirmURL); err != nil {
		// Roll the pending vote back so a retry is possible.
		if delErr := repo.DeleteVote(ctx, s.DB, vote.ID); delErr != nil {
			log.Error().Err(delErr).Uint("vote_id", vote.ID).Msg("rollback of unmailed vote failed")
		}
		log.Error().Err(err).Str("poll_id", pollID).Msg("confirmation email dispatch failed")
		return nil, ErrMailFailure
	}

	return vote, nil
}

// Confirm validates a confirmation token and counts the vote.
//
// On success it sets confirmed=true and increments the option tally inside
// one transaction, then returns the poll ID so callers can point the voter
// at the results. Expired or forged tokens, unknown votes, and re-used
// links fail without mutating state (ErrTokenExpired, ErrTokenInvalid,
// ErrVoteNotFound, ErrAlreadyConfirmed).
func (s *VoteService) Confirm(ctx context.Context, tokenString string) (string, error) {
	tr := otel.Tracer("services/VoteService")
	ctx, span := tr.Start(ctx, "Confirm")
	defer span.End()

	claims, err := s.Tokens.Verify(tokenString)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	span.SetAttributes(attribute.String("poll.id", claims.PollID))

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vote, err := repo.GetVote(ctx, tx, claims.VoteID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrVoteNotFound
			}
			return err
		}
		// The token must describe the vote it unlocks.
		if vote.PollID != claims.PollID || vote.Email != claims.Email {
			return ErrTokenInvalid
		}
		if vote.Confirmed {
			return ErrAlreadyConfirmed
		}
		// The window runs from vote creation, independent of clock drift in
		// the token's own exp claim.
		if time.Now().UTC().Sub(vote.CreatedAt) > s.Tokens.TTL() {
			return ErrTokenExpired
		}

		if err := repo.ConfirmVote(ctx, tx, vote.ID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				// Lost the race against another confirmation of the same vote.
				return ErrAlreadyConfirmed
			}
			return err
		}
		return repo.IncrementOptionVotes(ctx, tx, vote.OptionID)
	})
	if err != nil {
		return "", err
	}
	return claims.PollID, nil
}

// isDuplicate detects unique-constraint violations across drivers that may
// not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
