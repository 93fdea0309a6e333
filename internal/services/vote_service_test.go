package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/zamapoll/go-poll-backend/internal/domain"
	"github.com/zamapoll/go-poll-backend/internal/mail"
	"github.com/zamapoll/go-poll-backend/internal/token"
)

// fakeMailer records dispatched confirmations and can be told to fail.
type fakeMailer struct {
	to   []string
	urls []string
	fail error
}

func (m *fakeMailer) SendConfirmation(_ context.Context, toEmail, _ string, confirmURL string) error {
	if m.fail != nil {
		return m.fail
	}
	m.to = append(m.to, toEmail)
	m.urls = append(m.urls, confirmURL)
	return nil
}

var _ mail.Mailer = (*fakeMailer)(nil)

func newVoteSvc(t *testing.T, name string) (*VoteService, *PollService, *fakeMailer, *gorm.DB) {
	t.Helper()
	db := newServiceDB(t, name)
	fm := &fakeMailer{}
	vs := &VoteService{
		DB:             db,
		Tokens:         token.NewIssuer("test-secret", time.Hour),
		Mailer:         fm,
		ConfirmBaseURL: "http://localhost:8080/api/v1/votes/confirm",
	}
	return vs, NewPollService(db), fm, db
}

func seedOpenPoll(t *testing.T, ps *PollService) *domain.Poll {
	t.Helper()
	poll, err := ps.Create(context.Background(), "Best color of all?", []string{"Red", "Blue"})
	if err != nil {
		t.Fatalf("seed poll: %v", err)
	}
	return poll
}

func extractToken(t *testing.T, confirmURL string) string {
	t.Helper()
	u, err := url.Parse(confirmURL)
	if err != nil {
		t.Fatalf("parse confirm url %q: %v", confirmURL, err)
	}
	tok := u.Query().Get("token")
	if tok == "" {
		t.Fatalf("no token in confirm url %q", confirmURL)
	}
	return tok
}

func TestSubmit_InsertsUnconfirmedAndSendsMail(t *testing.T) {
	vs, ps, fm, db := newVoteSvc(t, "votesvc_submit")
	poll := seedOpenPoll(t, ps)
	ctx := context.Background()

	vote, err := vs.Submit(ctx, poll.ID, poll.Options[0].ID, " A@X.Com ", "203.0.113.7")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if vote.Confirmed {
		t.Fatalf("fresh vote must be unconfirmed")
	}
	if vote.Email != "a@x.com" {
		t.Fatalf("email not normalized: %q", vote.Email)
	}
	if len(fm.to) != 1 || fm.to[0] != "a@x.com" {
		t.Fatalf("mail recipients = %v", fm.to)
	}
	if !strings.HasPrefix(fm.urls[0], vs.ConfirmBaseURL+"?token=") {
		t.Fatalf("confirm url = %q", fm.urls[0])
	}

	// The emailed token really describes this vote.
	claims, err := vs.Tokens.Verify(extractToken(t, fm.urls[0]))
	if err != nil {
		t.Fatalf("verify emailed token: %v", err)
	}
	if claims.VoteID != vote.ID || claims.PollID != poll.ID || claims.Email != "a@x.com" {
		t.Fatalf("token claims: %+v", claims)
	}

	// Tallies are untouched until confirmation.
	var opt domain.Option
	if err := db.First(&opt, vote.OptionID).Error; err != nil {
		t.Fatalf("load option: %v", err)
	}
	if opt.Votes != 0 {
		t.Fatalf("tally after submit = %d, want 0", opt.Votes)
	}
}

func TestSubmit_Validation(t *testing.T) {
	vs, ps, _, _ := newVoteSvc(t, "votesvc_validate")
	poll := seedOpenPoll(t, ps)
	ctx := context.Background()

	if _, err := vs.Submit(ctx, poll.ID, poll.Options[0].ID, "not-an-email", ""); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("bad email = %v, want ErrInvalidEmail", err)
	}
	if _, err := vs.Submit(ctx, "abcdefabcdef", poll.Options[0].ID, "a@x.com", ""); !errors.Is(err, ErrPollNotFound) {
		t.Fatalf("unknown poll = %v, want ErrPollNotFound", err)
	}
	if _, err := vs.Submit(ctx, poll.ID, 99999, "a@x.com", ""); !errors.Is(err, ErrOptionNotFound) {
		t.Fatalf("unknown option = %v, want ErrOptionNotFound", err)
	}

	// Option of another poll reads as missing.
	other := seedOpenPoll(t, ps)
	if _, err := vs.Submit(ctx, poll.ID, other.Options[0].ID, "a@x.com", ""); !errors.Is(err, ErrOptionNotFound) {
		t.Fatalf("cross-poll option = %v, want ErrOptionNotFound", err)
	}
}

func TestSubmit_ClosedPoll(t *testing.T) {
	vs, ps, _, db := newVoteSvc(t, "votesvc_closed")
	ctx := context.Background()

	inactive := seedOpenPoll(t, ps)
	if err := db.Model(&domain.Poll{}).Where("id = ?", inactive.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := vs.Submit(ctx, inactive.ID, inactive.Options[0].ID, "a@x.com", ""); !errors.Is(err, ErrPollClosed) {
		t.Fatalf("inactive poll = %v, want ErrPollClosed", err)
	}

	expired := seedOpenPoll(t, ps)
	past := time.Now().UTC().Add(-time.Hour)
	if err := db.Model(&domain.Poll{}).Where("id = ?", expired.ID).Update("expires_at", past).Error; err != nil {
		t.Fatalf("expire: %v", err)
	}
	if _, err := vs.Submit(ctx, expired.ID, expired.Options[0].ID, "a@x.com", ""); !errors.Is(err, ErrPollClosed) {
		t.Fatalf("expired poll = %v, want ErrPollClosed", err)
	}
}

func TestSubmit_DuplicateEmail(t *testing.T) {
	vs, ps, fm, _ := newVoteSvc(t, "votesvc_dup")
	poll := seedOpenPoll(t, ps)
	ctx := context.Background()

	if _, err := vs.Submit(ctx, poll.ID, poll.Options[0].ID, "a@x.com", ""); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	// Case-insensitive duplicate, other option: still a conflict, no second mail.
	if _, err := vs.Submit(ctx, poll.ID, poll.Options[1].ID, "A@x.com", ""); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("duplicate = %v, want ErrAlreadyVoted", err)
	}
	if len(fm.to) != 1 {
		t.Fatalf("mail sent %d times, want 1", len(fm.to))
	}
}

func TestSubmit_MailFailureRollsBack(t *testing.T) {
	vs, ps, fm, db := newVoteSvc(t, "votesvc_mailfail")
	poll := seedOpenPoll(t, ps)
	ctx := context.Background()

	fm.fail = errors.New("provider down")
	if _, err := vs.Submit(ctx, poll.ID, poll.Options[0].ID, "a@x.com", ""); !errors.Is(err, ErrMailFailure) {
		t.Fatalf("mail failure = %v, want ErrMailFailure", err)
	}

	var count int64
	if err := db.Model(&domain.Vote{}).Where("poll_id = ?", poll.ID).Count(&count).Error; err != nil {
		t.Fatalf("count votes: %v", err)
	}
	if count != 0 {
		t.Fatalf("stranded vote rows: %d", count)
	}

	// The voter can retry once mail works again.
	fm.fail = nil
	if _, err := vs.Submit(ctx, poll.ID, poll.Options[0].ID, "a@x.com", ""); err != nil {
		t.Fatalf("retry after mail failure: %v", err)
	}
}

func TestConfirm_CountsVoteExactlyOnce(t *testing.T) {
	vs, ps, fm, _ := newVoteSvc(t, "votesvc_confirm")
	poll := seedOpenPoll(t, ps)
	ctx := context.Background()

	if _, err := vs.Submit(ctx, poll.ID, poll.Options[0].ID, "a@x.com", ""); err != nil {
		t.Fatalf("submit: %v", err)
	}
	tok := extractToken(t, fm.urls[0])

	pollID, err := vs.Confirm(ctx, tok)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if pollID != poll.ID {
		t.Fatalf("Confirm returned poll %q, want %q", pollID, poll.ID)
	}

	res, err := ps.Results(ctx, poll.ID)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if res.TotalVotes != 1 || res.Options[0].Text != "Red" || res.Options[0].Percent != 100 {
		t.Fatalf("results after confirm: %+v", res)
	}

	// Re-using the link must not increment again.
	if _, err := vs.Confirm(ctx, tok); !errors.Is(err, ErrAlreadyConfirmed) {
		t.Fatalf("reuse = %v, want ErrAlreadyConfirmed", err)
	}
	res, _ = ps.Results(ctx, poll.ID)
	if res.TotalVotes != 1 {
		t.Fatalf("total after reuse = %d, want 1", res.TotalVotes)
	}
}

func TestConfirm_ExpiredToken(t *testing.T) {
	vs, ps, fm, db := newVoteSvc(t, "votesvc_expired")
	poll := seedOpenPoll(t, ps)
	ctx := context.Background()

	vote, err := vs.Submit(ctx, poll.ID, poll.Options[0].ID, "a@x.com", "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// A token minted for a vote that is two hours old is past the window.
	stale, err := vs.Tokens.Sign(vote.ID, poll.ID, "a@x.com", time.Now().UTC().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("sign stale: %v", err)
	}
	if _, err := vs.Confirm(ctx, stale); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("stale token = %v, want ErrTokenExpired", err)
	}

	// A fresh-looking token cannot resurrect an old vote either: the window
	// runs from the row's creation time.
	past := time.Now().UTC().Add(-2 * time.Hour)
	if err := db.Model(&domain.Vote{}).Where("id = ?", vote.ID).Update("created_at", past).Error; err != nil {
		t.Fatalf("backdate vote: %v", err)
	}
	if _, err := vs.Confirm(ctx, extractToken(t, fm.urls[0])); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("backdated vote = %v, want ErrTokenExpired", err)
	}

	// Nothing was counted.
	res, _ := ps.Results(ctx, poll.ID)
	if res.TotalVotes != 0 {
		t.Fatalf("total after expired attempts = %d, want 0", res.TotalVotes)
	}
	var got domain.Vote
	if err := db.First(&got, vote.ID).Error; err != nil || got.Confirmed {
		t.Fatalf("vote mutated by expired confirm: %+v, %v", got, err)
	}
}

func TestConfirm_InvalidToken(t *testing.T) {
	vs, ps, _, db := newVoteSvc(t, "votesvc_invalid")
	poll := seedOpenPoll(t, ps)
	ctx := context.Background()

	if _, err := vs.Confirm(ctx, "garbage"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("garbage token = %v, want ErrTokenInvalid", err)
	}

	vote, err := vs.Submit(ctx, poll.ID, poll.Options[0].ID, "a@x.com", "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	// Claims that do not match the stored vote are treated as forged.
	wrong, err := vs.Tokens.Sign(vote.ID, poll.ID, "other@x.com", vote.CreatedAt)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := vs.Confirm(ctx, wrong); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("mismatched claims = %v, want ErrTokenInvalid", err)
	}

	// Token for a vote that no longer exists.
	gone, err := vs.Tokens.Sign(vote.ID, poll.ID, "a@x.com", vote.CreatedAt)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := db.Delete(&domain.Vote{}, vote.ID).Error; err != nil {
		t.Fatalf("delete vote: %v", err)
	}
	if _, err := vs.Confirm(ctx, gone); !errors.Is(err, ErrVoteNotFound) {
		t.Fatalf("vanished vote = %v, want ErrVoteNotFound", err)
	}
}
