// This file implements the PollService, which manages the lifecycle of
// polls. It sanitizes and validates the question and option texts, assigns
// the opaque poll identifier, persists the poll and its options in one
// transaction, and serves poll views, listings, and tallied results.
//
// Service-level errors (e.g. ErrPollNotFound, ErrInvalidOptions) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zamapoll/go-poll-backend/internal/domain"
	"github.com/zamapoll/go-poll-backend/internal/repo"
	"github.com/zamapoll/go-poll-backend/internal/sanitize"
)

// pollIDRE is the shape of every generated poll identifier. Checking it
// before touching the database turns obviously forged IDs into a cheap
// not-found.
var pollIDRE = regexp.MustCompile(`^[a-f0-9]{12}$`)

// PollService provides poll-level operations: creation, retrieval,
// listing, and results aggregation.
type PollService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// QuestionMinRunes / QuestionMaxRunes bound the sanitized question.
	QuestionMinRunes int
	QuestionMaxRunes int

	// OptionMinRunes / OptionMaxRunes bound each sanitized option text.
	OptionMinRunes int
	OptionMaxRunes int

	// MaxOptions caps how many options one poll may carry.
	MaxOptions int

	// PollTTL is how long a new poll accepts votes; 0 disables expiry.
	PollTTL time.Duration
}

// NewPollService constructs a PollService with the historical limits:
// questions of 10..500 characters, 2..10 options of 2..200 characters,
// polls open for 30 days.
func NewPollService(db *gorm.DB) *PollService {
	return &PollService{
		DB:               db,
		QuestionMinRunes: 10,
		QuestionMaxRunes: 500,
		OptionMinRunes:   2,
		OptionMaxRunes:   200,
		MaxOptions:       10,
		PollTTL:          30 * 24 * time.Hour,
	}
}

// OptionResult is one option row of a results view.
type OptionResult struct {
	ID      uint    `json:"id"`
	Text    string  `json:"text"`
	Votes   int64   `json:"votes"`
	Percent float64 `json:"percent"`
}

// Results is the tallied, read-only view of a poll. Options are ordered by
// tally descending, ties by insertion order.
type Results struct {
	Poll       *domain.Poll   `json:"poll"`
	TotalVotes int64          `json:"total_votes"`
	Options    []OptionResult `json:"options"`
}

// Create sanitizes and validates the question and options, then persists
// the poll with a fresh opaque identifier and one option row per text, all
// inside a single transaction.
//
// Validation after sanitization:
//   - the question must have at least QuestionMinRunes runes,
//   - 2..MaxOptions options must survive the OptionMinRunes cutoff,
//   - option texts must be distinct.
func (s *PollService) Create(ctx context.Context, question string, options []string) (*domain.Poll, error) {
	question = sanitize.Text(question, s.QuestionMaxRunes)
	if utf8.RuneCountInString(question) < s.QuestionMinRunes {
		return nil, ErrInvalidQuestion
	}

	cleaned := make([]string, 0, len(options))
	seen := make(map[string]struct{}, len(options))
	for _, raw := range options {
		text := sanitize.Text(raw, s.OptionMaxRunes)
		if utf8.RuneCountInString(text) < s.OptionMinRunes {
			continue
		}
		if _, dup := seen[text]; dup {
			return nil, ErrInvalidOptions
		}
		seen[text] = struct{}{}
		cleaned = append(cleaned, text)
	}
	if len(cleaned) < 2 || len(cleaned) > s.MaxOptions {
		return nil, ErrInvalidOptions
	}

	poll := &domain.Poll{
		ID:       newPollID(),
		Question: question,
		IsActive: true,
	}
	if s.PollTTL > 0 {
		exp := time.Now().UTC().Add(s.PollTTL)
		poll.ExpiresAt = &exp
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return repo.CreatePoll(ctx, tx, poll, cleaned)
	})
	if err != nil {
		return nil, err
	}
	return poll, nil
}

// Get returns a poll with its options in insertion order, or
// ErrPollNotFound for unknown or malformed identifiers.
func (s *PollService) Get(ctx context.Context, id string) (*domain.Poll, error) {
	if !pollIDRE.MatchString(id) {
		return nil, ErrPollNotFound
	}
	poll, err := repo.GetPoll(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPollNotFound
		}
		return nil, err
	}
	opts, err := repo.ListOptions(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	poll.Options = opts
	return poll, nil
}

// ListPage returns a page of polls, newest first, plus the total count.
// Invalid page/pageSize values fall back to defaults.
func (s *PollService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Poll, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountPolls(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Poll{}, 0, nil
	}
	items, err := repo.ListPollsPage(ctx, s.DB, offset, pageSize)
	return items, total, err
}

// Results computes the tallied view of a poll: options ordered by votes
// descending, each with its percentage share of the total. A poll with no
// confirmed votes reports 0% everywhere. Read-only.
func (s *PollService) Results(ctx context.Context, id string) (*Results, error) {
	if !pollIDRE.MatchString(id) {
		return nil, ErrPollNotFound
	}
	poll, err := repo.GetPoll(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPollNotFound
		}
		return nil, err
	}
	opts, err := repo.ListOptionsByVotes(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, o := range opts {
		total += o.Votes
	}

	out := &Results{Poll: poll, TotalVotes: total, Options: make([]OptionResult, 0, len(opts))}
	for _, o := range opts {
		r := OptionResult{ID: o.ID, Text: o.Text, Votes: o.Votes}
		if total > 0 {
			r.Percent = float64(o.Votes) * 100 / float64(total)
		}
		out.Options = append(out.Options, r)
	}
	return out, nil
}

// newPollID returns 12 lowercase hex characters of a random UUID, the
// same shape share links have always used.
func newPollID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
