// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Vote
// model.
//
// Error semantics:
//   - A duplicate vote (same poll_id, email) relies on the database unique
//     constraint and is returned as a raw DB error. The service layer
//     translates it into a domain error (services.ErrAlreadyVoted).
//   - ConfirmVote reports ErrNotFound when the vote is missing or already
//     confirmed, so a confirmation link can never count twice.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/zamapoll/go-poll-backend/internal/domain"
)

// CreateVote inserts an unconfirmed vote row. The (poll_id, email) pair
// must be unique; on violation the raw DB error is propagated for the
// service layer to translate.
func CreateVote(ctx context.Context, db *gorm.DB, pollID, email string, optionID uint, voterIP string) (*domain.Vote, error) {
	v := &domain.Vote{
		PollID:    pollID,
		Email:     email,
		OptionID:  optionID,
		VoterIP:   voterIP,
		Confirmed: false,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(v).Error; err != nil {
		return nil, err
	}
	return v, nil
}

// GetVote fetches a vote by its primary key. Returns ErrNotFound when the
// record does not exist.
func GetVote(ctx context.Context, db *gorm.DB, id uint) (*domain.Vote, error) {
	var v domain.Vote
	if err := db.WithContext(ctx).First(&v, id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// ConfirmVote flips confirmed to true for the given vote, but only when it
// is still unconfirmed. The WHERE guard makes the flip a compare-and-set:
// when zero rows are affected the vote was either missing or already
// confirmed, and ErrNotFound is returned without mutating anything.
func ConfirmVote(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).
		Model(&domain.Vote{}).
		Where("id = ? AND confirmed = ?", id, false).
		Update("confirmed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteVote removes a vote row. Used to roll back an unconfirmed vote
// when the confirmation email cannot be dispatched, so the voter can try
// again.
func DeleteVote(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).Delete(&domain.Vote{}, id).Error
}
