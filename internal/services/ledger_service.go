package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"suryasakshi/internal/core"
	"suryasakshi/internal/ledger"
)

var (
	// ErrInvalid wraps every validation failure so callers can map it to a
	// client error.
	ErrInvalid = errors.New("invalid record")
	// ErrNoAttachments is returned when a category does not carry files.
	ErrNoAttachments = errors.New("category does not accept attachments")
)

// ActivityPublisher announces mutations to other processes.
type ActivityPublisher interface {
	PublishActivity(ctx context.Context, a core.Activity) error
}

// LedgerService orchestrates record mutations across the store, the activity
// log and the message broker for one record kind.
type LedgerService[T core.Record, P core.Mutable[T]] struct {
	category  core.Category
	repo      ledger.Repository[T]
	files     ledger.AttachmentStore
	publisher ActivityPublisher
	onChange  func()
	now       func() time.Time
}

func NewLedgerService[T core.Record, P core.Mutable[T]](
	category core.Category,
	repo ledger.Repository[T],
	files ledger.AttachmentStore,
	publisher ActivityPublisher,
) *LedgerService[T, P] {
	return &LedgerService[T, P]{
		category:  category,
		repo:      repo,
		files:     files,
		publisher: publisher,
		now:       time.Now,
	}
}

// OnChange registers a hook run after every successful mutation.
func (s *LedgerService[T, P]) OnChange(fn func()) {
	s.onChange = fn
}

func (s *LedgerService[T, P]) Category() core.Category {
	return s.category
}

func (s *LedgerService[T, P]) List(ctx context.Context) ([]T, error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.category, err)
	}
	return recs, nil
}

func (s *LedgerService[T, P]) Get(ctx context.Context, id int64) (T, error) {
	return s.repo.Get(ctx, id)
}

// Add recomputes derived totals, validates and stores rec. Any identifier on
// rec is ignored.
func (s *LedgerService[T, P]) Add(ctx context.Context, user string, rec T) (T, error) {
	p := P(&rec)
	p.SetRecordID(0)
	if err := s.prepare(p); err != nil {
		return rec, err
	}

	entry := s.entry(user, core.ActionCreated, p.Describe())
	stored, err := s.repo.Add(ctx, rec, entry)
	if err != nil {
		return rec, fmt.Errorf("save %s: %w", s.category, err)
	}

	s.changed(ctx, entry)
	return stored, nil
}

// Update replaces the record with rec's identifier.
func (s *LedgerService[T, P]) Update(ctx context.Context, user string, rec T) (T, error) {
	p := P(&rec)
	if err := s.prepare(p); err != nil {
		return rec, err
	}

	entry := s.entry(user, core.ActionUpdated, p.Describe())
	stored, err := s.repo.Update(ctx, rec, entry)
	if err != nil {
		return rec, fmt.Errorf("update %s %d: %w", s.category, p.RecordID(), err)
	}

	s.changed(ctx, entry)
	return stored, nil
}

// Delete removes the record and its attachment. Deleting a record that does
// not exist is a no-op.
func (s *LedgerService[T, P]) Delete(ctx context.Context, user string, id int64) error {
	rec, err := s.repo.Get(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		slog.DebugContext(ctx, "Delete of missing record ignored", "category", s.category, "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s %d: %w", s.category, id, err)
	}

	entry := s.entry(user, core.ActionDeleted, P(&rec).Describe())
	if err := s.repo.Delete(ctx, id, entry); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete %s %d: %w", s.category, id, err)
	}

	if a, ok := any(P(&rec)).(core.Attachable); ok && a.Attachment() != "" && s.files != nil {
		if err := s.files.Delete(ctx, a.Attachment()); err != nil {
			slog.WarnContext(ctx, "Failed to delete attachment", "url", a.Attachment(), "error", err)
		}
	}

	s.changed(ctx, entry)
	return nil
}

// AttachFile stores a file for record id under a fixed key, replacing any
// previous upload, and records its URL on the record. If the record update
// fails the previous file is put back.
func (s *LedgerService[T, P]) AttachFile(ctx context.Context, user string, id int64, name string, r io.Reader) (T, error) {
	var zero T
	if !s.category.HasAttachments() || s.files == nil {
		return zero, ErrNoAttachments
	}
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return zero, fmt.Errorf("load %s %d: %w", s.category, id, err)
	}
	a, ok := any(P(&rec)).(core.Attachable)
	if !ok {
		return zero, ErrNoAttachments
	}

	prevURL := a.Attachment()
	prev, err := s.readAttachment(ctx, prevURL)
	if err != nil {
		return zero, fmt.Errorf("read previous attachment: %w", err)
	}

	url, err := s.files.Put(ctx, s.category, id, name, r)
	if err != nil {
		return zero, fmt.Errorf("store attachment: %w", err)
	}
	a.SetAttachment(url)

	entry := s.entry(user, core.ActionUpdated, "attachment for "+P(&rec).Describe())
	stored, err := s.repo.Update(ctx, rec, entry)
	if err != nil {
		s.restoreAttachment(ctx, id, url, prevURL, prev)
		return zero, fmt.Errorf("update %s %d: %w", s.category, id, err)
	}

	s.changed(ctx, entry)
	return stored, nil
}

// readAttachment returns the stored bytes behind url, or nil when there is
// nothing stored.
func (s *LedgerService[T, P]) readAttachment(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, nil
	}
	rc, err := s.files.Open(ctx, url)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// restoreAttachment undoes an upload whose record update failed: the previous
// file goes back under its key, or the new file is removed when there was none.
func (s *LedgerService[T, P]) restoreAttachment(ctx context.Context, id int64, url, prevURL string, prev []byte) {
	var err error
	switch {
	case prev != nil:
		_, err = s.files.Put(ctx, s.category, id, path.Base(prevURL), bytes.NewReader(prev))
	case url != "":
		err = s.files.Delete(ctx, url)
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to restore attachment", "category", s.category, "id", id, "error", err)
	}
}

func (s *LedgerService[T, P]) prepare(p P) error {
	p.Derive()
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func (s *LedgerService[T, P]) entry(user string, action core.ActionKind, target string) core.Activity {
	return core.Activity{
		UserName:  user,
		Action:    action,
		Category:  s.category,
		Target:    target,
		CreatedAt: s.now(),
	}
}

// changed runs after a committed mutation. Publishing is best effort: the
// record is already stored.
func (s *LedgerService[T, P]) changed(ctx context.Context, entry core.Activity) {
	if s.onChange != nil {
		s.onChange()
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping activity message")
		return
	}
	if err := s.publisher.PublishActivity(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "Failed to publish activity message",
			"category", entry.Category,
			"action", entry.Action,
			"error", err)
	}
}
