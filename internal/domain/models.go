// Package domain defines the persistence models for polls, options, and
// votes. These types are mapped with GORM and form the core data layer of
// the polling application.
package domain

import "time"

// Poll represents a question with a fixed set of selectable options.
//
// Fields:
//   - ID: opaque 12-character lowercase hex key (non-sequential, so poll
//     URLs cannot be enumerated).
//   - Question: the poll question, sanitized before storage.
//   - IsActive: whether the poll still accepts votes.
//   - ExpiresAt: optional closing time; an expired poll no longer accepts
//     votes but its results stay readable.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Poll struct {
	ID        string     `json:"id"         gorm:"type:char(12);primaryKey"`
	Question  string     `json:"question"   gorm:"type:varchar(500);not null"`
	IsActive  bool       `json:"is_active"  gorm:"not null;default:true"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Options are the selectable answers, created together with the poll.
	Options []Option `json:"options,omitempty" gorm:"foreignKey:PollID;references:ID"`
}

// TableName returns the database table name for Poll.
func (Poll) TableName() string { return "polls" }

// Open reports whether the poll accepts votes at time now: it must be
// active and not past its expiry.
func (p *Poll) Open(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if p.ExpiresAt != nil && now.After(*p.ExpiresAt) {
		return false
	}
	return true
}

// Option is one selectable answer to a poll with an accumulated tally of
// confirmed votes.
//
// Fields:
//   - ID: autoincrement primary key.
//   - PollID: foreign key to the owning poll (indexed).
//   - Text: the answer text, sanitized before storage.
//   - Votes: number of confirmed votes; starts at 0 and is only ever
//     incremented, inside the same transaction that confirms a vote.
type Option struct {
	ID     uint   `json:"id"      gorm:"primaryKey;autoIncrement"`
	PollID string `json:"poll_id" gorm:"type:char(12);not null;index:idx_options_poll"`
	Text   string `json:"text"    gorm:"type:varchar(200);not null"`
	Votes  int64  `json:"votes"   gorm:"not null;default:0"`

	// Poll is the owning poll. Options are cascade-deleted with it.
	Poll Poll `json:"-" gorm:"foreignKey:PollID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Option.
func (Option) TableName() string { return "options" }

// Vote records one email address choosing one option of one poll. A vote
// starts unconfirmed and is confirmed exactly once through the emailed
// link; only confirmed votes count toward option tallies.
//
// The unique index on (poll_id, email) is the single place where
// "one person, one vote" is enforced: a second submission for the same
// poll and email fails the insert, regardless of confirmation state, and
// the database arbitrates between concurrent attempts.
type Vote struct {
	ID        uint      `json:"id"        gorm:"primaryKey;autoIncrement"`
	PollID    string    `json:"poll_id"   gorm:"type:char(12);not null;index:idx_votes_poll;uniqueIndex:ux_votes_poll_email,priority:1"`
	Email     string    `json:"email"     gorm:"type:varchar(254);not null;index:idx_votes_email;uniqueIndex:ux_votes_poll_email,priority:2"`
	OptionID  uint      `json:"option_id" gorm:"not null"`
	Confirmed bool      `json:"confirmed" gorm:"not null;default:false"`
	VoterIP   string    `json:"-"         gorm:"type:varchar(45)"`
	CreatedAt time.Time `json:"created_at"`

	// Poll and Option are the FK associations; votes are cascade-deleted
	// with their poll.
	Poll   Poll   `json:"-" gorm:"foreignKey:PollID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Option Option `json:"-" gorm:"foreignKey:OptionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Vote.
func (Vote) TableName() string { return "votes" }
