package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"prospector/models"
)

// In-memory implementations of the store interfaces. They back the engine
// and controller tests; nothing in the server wires them.

// MemoryDraftStore is an in-memory DraftStore.
type MemoryDraftStore struct {
	mu      sync.RWMutex
	drafts  map[string]*models.Draft
	threads map[string][]models.ThreadMessage
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{
		drafts:  make(map[string]*models.Draft),
		threads: make(map[string][]models.ThreadMessage),
	}
}

// Seed inserts a draft as-is, without stamping id or created_at.
func (s *MemoryDraftStore) Seed(drafts ...*models.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range drafts {
		copied := *d
		s.drafts[d.ID] = &copied
	}
}

func (s *MemoryDraftStore) SeedThread(draftID string, messages ...models.ThreadMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[draftID] = append(s.threads[draftID], messages...)
}

func (s *MemoryDraftStore) Get(ctx context.Context, id string) (*models.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (s *MemoryDraftStore) Create(ctx context.Context, draft *models.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	if draft.CreatedAt == nil {
		now := time.Now().UTC()
		draft.CreatedAt = &now
	}
	copied := *draft
	s.drafts[draft.ID] = &copied
	return nil
}

func (s *MemoryDraftStore) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[id]
	if !ok {
		return ErrNotFound
	}
	for key, value := range fields {
		applyDraftField(d, key, value)
	}
	return nil
}

func (s *MemoryDraftStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[id]; !ok {
		return ErrNotFound
	}
	delete(s.drafts, id)
	return nil
}

func (s *MemoryDraftStore) ListByStatus(ctx context.Context, status, orderBy string, limit int) ([]models.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Draft
	for _, d := range s.drafts {
		if d.Status == status {
			out = append(out, *d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		var ti, tj *time.Time
		if orderBy == "sent_at" {
			ti, tj = out[i].SentAt, out[j].SentAt
		} else if orderBy == "rejected_at" {
			ti, tj = out[i].RejectedAt, out[j].RejectedAt
		} else {
			ti, tj = out[i].CreatedAt, out[j].CreatedAt
		}
		return laterThan(ti, tj)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryDraftStore) ListRecent(ctx context.Context, limit int) ([]models.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Draft, 0, len(s.drafts))
	for _, d := range s.drafts {
		out = append(out, *d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return laterThan(out[i].CreatedAt, out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryDraftStore) ListPage(ctx context.Context, status string, limit int, cursor string) (*Page, error) {
	if limit <= 0 {
		limit = 50
	}
	all, err := s.ListByStatus(ctx, status, "created_at", 0)
	if err != nil {
		return nil, err
	}
	start := 0
	if cursor != "" {
		_, id, err := decodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		for i, d := range all {
			if d.ID == id {
				start = i + 1
				break
			}
		}
	}
	if start > len(all) {
		start = len(all)
	}
	rest := all[start:]
	page := &Page{}
	if len(rest) > limit {
		page.Drafts = rest[:limit]
		last := page.Drafts[limit-1]
		page.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	} else {
		page.Drafts = rest
	}
	return page, nil
}

func (s *MemoryDraftStore) ListGroupPending(ctx context.Context, versionGroupID string) ([]models.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Draft
	for _, d := range s.drafts {
		if d.VersionGroupID == versionGroupID && d.Status == models.DraftStatusPending {
			out = append(out, *d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return laterThan(out[j].CreatedAt, out[i].CreatedAt)
	})
	return out, nil
}

func (s *MemoryDraftStore) CountByStatus(ctx context.Context, status string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, d := range s.drafts {
		if d.Status == status {
			count++
		}
	}
	return count, nil
}

func (s *MemoryDraftStore) DeleteByStatus(ctx context.Context, status string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for id, d := range s.drafts {
		if d.Status == status {
			delete(s.drafts, id)
			count++
		}
	}
	return count, nil
}

func (s *MemoryDraftStore) ListThreadMessages(ctx context.Context, draftID string) ([]models.ThreadMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]models.ThreadMessage(nil), s.threads[draftID]...)
	sort.SliceStable(out, func(i, j int) bool {
		return laterThan(out[j].Timestamp, out[i].Timestamp)
	})
	return out, nil
}

// laterThan orders descending with nil timestamps last.
func laterThan(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}

func asTimePtr(value interface{}) *time.Time {
	switch v := value.(type) {
	case time.Time:
		return &v
	case *time.Time:
		return v
	}
	return nil
}

func applyDraftField(d *models.Draft, key string, value interface{}) {
	switch key {
	case "status":
		d.Status, _ = value.(string)
	case "sent_at":
		d.SentAt = asTimePtr(value)
	case "rejected_at":
		d.RejectedAt = asTimePtr(value)
	case "auto_rejected":
		d.AutoRejected, _ = value.(bool)
	case "rejected_reason":
		d.RejectedReason, _ = value.(string)
	case "message_id":
		d.MessageID, _ = value.(string)
	case "pixel_id":
		d.PixelID, _ = value.(string)
	case "notes":
		d.Notes, _ = value.(string)
	case "notes_updated_at":
		d.NotesUpdatedAt = asTimePtr(value)
	case "to":
		d.To, _ = value.(string)
	case "email_changed":
		d.EmailChanged, _ = value.(bool)
	case "original_email":
		d.OriginalEmail, _ = value.(string)
	case "email_changed_at":
		d.EmailChangedAt = asTimePtr(value)
	case "original_to":
		d.OriginalTo, _ = value.(string)
	case "email_forwarded_at":
		d.EmailForwardedAt = asTimePtr(value)
	case "resent_draft_id":
		d.ResentDraftID, _ = value.(string)
	case "resent_at":
		d.ResentAt = asTimePtr(value)
	}
}

// MemoryFollowupStore is an in-memory FollowupStore.
type MemoryFollowupStore struct {
	mu        sync.RWMutex
	followups map[string]*models.Followup
}

func NewMemoryFollowupStore() *MemoryFollowupStore {
	return &MemoryFollowupStore{followups: make(map[string]*models.Followup)}
}

func (s *MemoryFollowupStore) Seed(followups ...*models.Followup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range followups {
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		copied := *f
		s.followups[f.ID] = &copied
	}
}

func (s *MemoryFollowupStore) Get(ctx context.Context, id string) (*models.Followup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.followups[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *f
	return &copied, nil
}

func (s *MemoryFollowupStore) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.followups[id]
	if !ok {
		return ErrNotFound
	}
	for key, value := range fields {
		switch key {
		case "status":
			f.Status, _ = value.(string)
		case "cancelled_at":
			f.CancelledAt = asTimePtr(value)
		case "cancelled_reason":
			f.CancelledReason, _ = value.(string)
		case "retry_count":
			switch v := value.(type) {
			case int:
				f.RetryCount = v
			case int64:
				f.RetryCount = int(v)
			}
		case "error_message":
			f.ErrorMessage, _ = value.(string)
		case "scheduled_for":
			f.ScheduledFor = asTimePtr(value)
		case "to":
			f.To, _ = value.(string)
		}
	}
	return nil
}

func (s *MemoryFollowupStore) ListByDraft(ctx context.Context, draftID string) ([]models.Followup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Followup
	for _, f := range s.followups {
		if f.DraftID == draftID {
			out = append(out, *f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FollowupNumber < out[j].FollowupNumber
	})
	return out, nil
}

func (s *MemoryFollowupStore) ListRecent(ctx context.Context, limit int) ([]models.Followup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Followup
	for _, f := range s.followups {
		out = append(out, *f)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return laterThan(out[i].ScheduledFor, out[j].ScheduledFor)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryFollowupStore) ListScheduledByDraft(ctx context.Context, draftID string) ([]models.Followup, error) {
	all, err := s.ListByDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	var out []models.Followup
	for _, f := range all {
		if f.Status == models.FollowupStatusScheduled {
			out = append(out, f)
		}
	}
	return out, nil
}

// MemoryOpenStore is an in-memory OpenStore.
type MemoryOpenStore struct {
	mu      sync.RWMutex
	records map[string]*models.OpenRecord
	events  map[string][]models.OpenEvent
	// Err, when set, is returned by every lookup. Lets tests exercise
	// aggregation-level failure propagation.
	Err error
}

func NewMemoryOpenStore() *MemoryOpenStore {
	return &MemoryOpenStore{
		records: make(map[string]*models.OpenRecord),
		events:  make(map[string][]models.OpenEvent),
	}
}

func (s *MemoryOpenStore) Seed(records ...*models.OpenRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		copied := *r
		s.records[r.PixelID] = &copied
	}
}

func (s *MemoryOpenStore) SeedEvents(pixelID string, events ...models.OpenEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[pixelID] = append(s.events[pixelID], events...)
}

func (s *MemoryOpenStore) Get(ctx context.Context, pixelID string) (*models.OpenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	r, ok := s.records[pixelID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (s *MemoryOpenStore) ListEvents(ctx context.Context, pixelID string, limit int) ([]models.OpenEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := append([]models.OpenEvent(nil), s.events[pixelID]...)
	sort.SliceStable(out, func(i, j int) bool {
		return laterThan(out[i].OpenedAt, out[j].OpenedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MemoryInstructionStore is an in-memory InstructionStore.
type MemoryInstructionStore struct {
	mu    sync.RWMutex
	items map[string]*models.AgentInstruction
}

func NewMemoryInstructionStore() *MemoryInstructionStore {
	return &MemoryInstructionStore{items: make(map[string]*models.AgentInstruction)}
}

func (s *MemoryInstructionStore) Get(ctx context.Context, id string) (*models.AgentInstruction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	instr, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *instr
	return &copied, nil
}

func (s *MemoryInstructionStore) Create(ctx context.Context, instr *models.AgentInstruction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if instr.ID == "" {
		instr.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if instr.CreatedAt == nil {
		instr.CreatedAt = &now
	}
	if instr.UpdatedAt == nil {
		instr.UpdatedAt = &now
	}
	copied := *instr
	s.items[instr.ID] = &copied
	return nil
}

func (s *MemoryInstructionStore) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	instr, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	for key, value := range fields {
		switch key {
		case "is_active":
			instr.IsActive, _ = value.(bool)
		case "version_name":
			instr.VersionName, _ = value.(string)
		case "instruction_text":
			instr.InstructionText, _ = value.(string)
		case "updated_at":
			instr.UpdatedAt = asTimePtr(value)
		}
	}
	return nil
}

func (s *MemoryInstructionStore) List(ctx context.Context) ([]models.AgentInstruction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AgentInstruction
	for _, instr := range s.items {
		out = append(out, *instr)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FollowupNumber != out[j].FollowupNumber {
			return out[i].FollowupNumber < out[j].FollowupNumber
		}
		return laterThan(out[i].CreatedAt, out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryInstructionStore) ListByStep(ctx context.Context, followupNumber int) ([]models.AgentInstruction, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.AgentInstruction
	for _, instr := range all {
		if instr.FollowupNumber == followupNumber {
			out = append(out, instr)
		}
	}
	return out, nil
}
