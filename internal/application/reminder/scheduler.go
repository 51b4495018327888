package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pinme-ledger/internal/domain"
)

const (
	defaultPollInterval = 60 * time.Second
	defaultBatchSize    = 50
	defaultCallTimeout  = 15 * time.Second

	fallbackName = "bhai"
)

// DispatchStore is the subset of Store the scheduler needs.
type DispatchStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.DueReminder, error)
	Get(ctx context.Context, reminderID string) (*domain.Reminder, error)
	MarkSent(ctx context.Context, reminderID string, now time.Time) error
}

// Sender delivers a text message to a phone number.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

type SchedulerOptions struct {
	PollInterval time.Duration
	BatchSize    int
	// CallTimeout bounds every individual store or transport call in a tick.
	CallTimeout time.Duration
	Now         func() time.Time
}

// Scheduler polls for due reminders and sends each one over the messaging
// transport. Delivery is at least once: a reminder is marked sent only after
// the transport accepted it, so a crash or store failure in between causes a
// resend on a later tick.
type Scheduler struct {
	store       DispatchStore
	sender      Sender
	interval    time.Duration
	batchSize   int
	callTimeout time.Duration
	now         func() time.Time
}

func NewScheduler(store DispatchStore, sender Sender, opts SchedulerOptions) *Scheduler {
	s := &Scheduler{
		store:       store,
		sender:      sender,
		interval:    opts.PollInterval,
		batchSize:   opts.BatchSize,
		callTimeout: opts.CallTimeout,
		now:         opts.Now,
	}
	if s.interval <= 0 {
		s.interval = defaultPollInterval
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	if s.callTimeout <= 0 {
		s.callTimeout = defaultCallTimeout
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// PollResult summarizes one tick. Raced counts messages that went out but
// lost the final write to a concurrent cancel or send.
type PollResult struct {
	Due     int
	Sent    int
	Skipped int
	Failed  int
	Raced   int
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeSkipped
	outcomeFailed
	outcomeRaced
)

// PollOnce dispatches every reminder due at the time of the call, up to the
// batch size. Candidates are handled one after another; a failure on one
// never stops the rest. The only error returned is a failure to list
// candidates.
func (s *Scheduler) PollOnce(ctx context.Context) (PollResult, error) {
	var res PollResult

	listCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	due, err := s.store.ListDue(listCtx, s.now(), s.batchSize)
	cancel()
	if err != nil {
		return res, fmt.Errorf("list due reminders: %w", err)
	}
	res.Due = len(due)

	for _, d := range due {
		if ctx.Err() != nil {
			break
		}
		switch s.dispatch(ctx, d) {
		case outcomeSent:
			res.Sent++
		case outcomeSkipped:
			res.Skipped++
		case outcomeRaced:
			res.Raced++
		default:
			res.Failed++
		}
	}
	return res, nil
}

func (s *Scheduler) dispatch(ctx context.Context, d domain.DueReminder) (out outcome) {
	log := slog.With("reminder_id", d.ReminderID, "user_id", d.UserID)
	defer func() {
		if r := recover(); r != nil {
			log.Error("reminder dispatch panicked", "panic", r)
			out = outcomeFailed
		}
	}()

	// Re-read so a cancel or edit that landed after ListDue wins.
	getCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	current, err := s.store.Get(getCtx, d.ReminderID)
	cancel()
	if errors.Is(err, domain.ErrNotFound) {
		log.Info("reminder gone before dispatch")
		return outcomeSkipped
	}
	if err != nil {
		log.Warn("reminder re-read failed", "err", err)
		return outcomeFailed
	}
	if !current.Pending() {
		log.Info("reminder no longer pending, skipping", "status", current.Status(s.now()))
		return outcomeSkipped
	}
	if current.RemindAt.After(s.now()) {
		log.Info("reminder rescheduled, skipping", "remind_at", current.RemindAt)
		return outcomeSkipped
	}

	msg := Message(d.UserName, current.Text)
	sendCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	err = s.sender.SendText(sendCtx, d.PhoneNumber, msg)
	cancel()
	if err != nil {
		log.Warn("reminder send failed, will retry", "phone", d.PhoneNumber, "err", err)
		return outcomeFailed
	}

	markCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	err = s.store.MarkSent(markCtx, d.ReminderID, s.now())
	cancel()
	switch {
	case errors.Is(err, domain.ErrConflict):
		log.Warn("reminder changed while sending, left as is", "status", s.statusOf(ctx, d.ReminderID))
		return outcomeRaced
	case err != nil:
		log.Error("reminder sent but not marked, may resend", "err", err)
		return outcomeFailed
	default:
		log.Info("reminder sent", "phone", d.PhoneNumber)
	}
	return outcomeSent
}

// statusOf re-reads a reminder for logging only.
func (s *Scheduler) statusOf(ctx context.Context, reminderID string) string {
	getCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	r, err := s.store.Get(getCtx, reminderID)
	if err != nil {
		return "unknown"
	}
	return string(r.Status(s.now()))
}

// Run polls once immediately and then every interval until ctx is done.
// Ticks run on the calling goroutine, so they never overlap.
func (s *Scheduler) Run(ctx context.Context) {
	runOnce := func() {
		res, err := s.PollOnce(ctx)
		if err != nil {
			slog.Warn("reminder poll failed", "err", err)
			return
		}
		if res.Due > 0 {
			slog.Info("reminder poll", "due", res.Due, "sent", res.Sent, "skipped", res.Skipped, "failed", res.Failed, "raced", res.Raced)
		}
	}
	runOnce()

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			runOnce()
		}
	}
}

// Message renders the WhatsApp text for a due reminder.
func Message(userName *string, text string) string {
	u := domain.User{Name: userName}
	return fmt.Sprintf("Ping ping ⚡ %s, %s karna tha abhi yaad hai?", u.FirstName(fallbackName), text)
}
