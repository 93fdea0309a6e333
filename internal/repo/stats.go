// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries over a poll's
// votes and tallies, used by the results endpoint and by tests asserting
// the tally/confirmation invariant.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/zamapoll/go-poll-backend/internal/domain"
)

// PollStats holds aggregate counters for a single poll.
type PollStats struct {
	// ConfirmedVotes is the number of vote rows with confirmed = true.
	ConfirmedVotes int64
	// PendingVotes is the number of vote rows awaiting confirmation.
	PendingVotes int64
	// TallySum is the sum of all option tallies. It never exceeds
	// ConfirmedVotes: tallies are only incremented in the transaction that
	// confirms a vote.
	TallySum int64
}

// GetPollStats computes vote counters for pollID. A poll with no votes
// returns all zeros.
func GetPollStats(ctx context.Context, db *gorm.DB, pollID string) (PollStats, error) {
	var s PollStats

	if err := db.WithContext(ctx).
		Model(&domain.Vote{}).
		Where("poll_id = ? AND confirmed = ?", pollID, true).
		Count(&s.ConfirmedVotes).Error; err != nil {
		return PollStats{}, err
	}
	if err := db.WithContext(ctx).
		Model(&domain.Vote{}).
		Where("poll_id = ? AND confirmed = ?", pollID, false).
		Count(&s.PendingVotes).Error; err != nil {
		return PollStats{}, err
	}

	// COALESCE so a poll without options yields 0 instead of NULL.
	var row struct {
		Total int64
	}
	if err := db.WithContext(ctx).
		Model(&domain.Option{}).
		Select("COALESCE(SUM(votes), 0) AS total").
		Where("poll_id = ?", pollID).
		Scan(&row).Error; err != nil {
		return PollStats{}, err
	}
	s.TallySum = row.Total
	return s, nil
}
