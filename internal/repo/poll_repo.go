// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Poll and
// Option models.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a poll or option is not found, functions return
//     gorm.ErrRecordNotFound (also exported here as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/zamapoll/go-poll-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreatePoll inserts the poll row together with one option row per text, in
// insertion order, all with tally 0. Callers run it inside a transaction so
// a failed option insert rolls the poll back too.
func CreatePoll(ctx context.Context, db *gorm.DB, poll *domain.Poll, optionTexts []string) error {
	if poll.CreatedAt.IsZero() {
		poll.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(poll).Error; err != nil {
		return err
	}
	opts := make([]domain.Option, 0, len(optionTexts))
	for _, text := range optionTexts {
		opts = append(opts, domain.Option{PollID: poll.ID, Text: text})
	}
	if err := db.WithContext(ctx).Create(&opts).Error; err != nil {
		return err
	}
	poll.Options = opts
	return nil
}

// GetPoll fetches a single poll by its ID, without options. Returns
// ErrNotFound if the record does not exist.
func GetPoll(ctx context.Context, db *gorm.DB, id string) (*domain.Poll, error) {
	var p domain.Poll
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CountPolls returns the total number of polls, for pagination metadata.
func CountPolls(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Poll{}).Count(&total).Error
	return total, err
}

// ListPollsPage returns a page of polls ordered by creation time descending
// (most recent first). The caller computes offset and limit.
func ListPollsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Poll, error) {
	var out []domain.Poll
	err := db.WithContext(ctx).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListOptions returns the options of a poll in insertion order.
func ListOptions(ctx context.Context, db *gorm.DB, pollID string) ([]domain.Option, error) {
	var out []domain.Option
	err := db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		Order("id").
		Find(&out).Error
	return out, err
}

// ListOptionsByVotes returns the options of a poll ordered by tally
// descending, ties broken by insertion order. Used for results display.
func ListOptionsByVotes(ctx context.Context, db *gorm.DB, pollID string) ([]domain.Option, error) {
	var out []domain.Option
	err := db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		Order("votes desc, id").
		Find(&out).Error
	return out, err
}

// GetOption fetches an option by ID, scoped to pollID so an option
// belonging to a different poll reads as missing. Returns ErrNotFound when
// absent.
func GetOption(ctx context.Context, db *gorm.DB, optionID uint, pollID string) (*domain.Option, error) {
	var o domain.Option
	err := db.WithContext(ctx).
		Where("id = ? AND poll_id = ?", optionID, pollID).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// IncrementOptionVotes adds one to an option's tally. The update is
// relative (votes = votes + 1) so concurrent confirmations cannot lose
// increments. Returns ErrNotFound if the option does not exist.
func IncrementOptionVotes(ctx context.Context, db *gorm.DB, optionID uint) error {
	res := db.WithContext(ctx).
		Model(&domain.Option{}).
		Where("id = ?", optionID).
		Update("votes", gorm.Expr("votes + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
