package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"rental-system/internal/contextkeys"
	"rental-system/internal/core/domain"
	"strings"
	"sync"
	"time"
)

var errBoom = errors.New("boom")

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func asUser(id string) context.Context {
	return contextkeys.ContextWithUser(context.Background(), domain.Principal{UserID: id, Role: domain.RoleLandlord})
}

type fakePropertyRepo struct {
	mu       sync.Mutex
	rows     []domain.Property
	seq      int
	listErr  error
	getErr   error
	insErr   error
	updErr   error
	delErr   error
	calls    []string
	patches  []domain.PropertyPatch
	inserted []domain.Property
}

func (r *fakePropertyRepo) record(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *fakePropertyRepo) List(context.Context) ([]domain.Property, error) {
	r.record("list")
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.Property, len(r.rows))
	copy(out, r.rows)
	return out, nil
}

func (r *fakePropertyRepo) GetByID(_ context.Context, id string) (*domain.Property, error) {
	r.record("get")
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, p := range r.rows {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakePropertyRepo) Insert(_ context.Context, p domain.Property) (*domain.Property, error) {
	r.record("insert")
	if r.insErr != nil {
		return nil, r.insErr
	}
	r.seq++
	p.ID = fmt.Sprintf("p-%d", r.seq)
	p.CreatedAt = fixedNow
	p.UpdatedAt = fixedNow
	r.rows = append([]domain.Property{p}, r.rows...)
	r.inserted = append(r.inserted, p)
	return &p, nil
}

func (r *fakePropertyRepo) Update(_ context.Context, id string, patch domain.PropertyPatch) error {
	r.record("update")
	if r.updErr != nil {
		return r.updErr
	}
	r.patches = append(r.patches, patch)
	for i := range r.rows {
		if r.rows[i].ID == id {
			r.rows[i] = r.rows[i].Apply(patch)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakePropertyRepo) Delete(_ context.Context, id string) error {
	r.record("delete")
	if r.delErr != nil {
		return r.delErr
	}
	for i := range r.rows {
		if r.rows[i].ID == id {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

const cdnBase = "https://cdn.test/"

type fakeStorage struct {
	uploads    int
	failUpload map[int]bool // 1-based call numbers
	failRemove map[string]bool
	stored     map[string]string
	removed    []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{failUpload: map[int]bool{}, failRemove: map[string]bool{}, stored: map[string]string{}}
}

func (s *fakeStorage) Upload(_ context.Context, path string, body io.Reader, _ int64, _ string) (string, error) {
	s.uploads++
	if s.failUpload[s.uploads] {
		return "", errBoom
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.stored[path] = string(data)
	return cdnBase + path, nil
}

func (s *fakeStorage) Remove(_ context.Context, path string) error {
	if s.failRemove[path] {
		return errBoom
	}
	s.removed = append(s.removed, path)
	delete(s.stored, path)
	return nil
}

func (s *fakeStorage) ObjectPath(url string) (string, bool) {
	if !strings.HasPrefix(url, cdnBase) {
		return "", false
	}
	return strings.TrimPrefix(url, cdnBase), true
}

type fakeCache struct {
	items       map[string]domain.Property
	invalidated []string
	getErr      error
}

func newFakeCache() *fakeCache { return &fakeCache{items: map[string]domain.Property{}} }

func (c *fakeCache) Get(_ context.Context, id string) (*domain.Property, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	if p, ok := c.items[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (c *fakeCache) Set(_ context.Context, p domain.Property) error {
	c.items[p.ID] = p
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, id string) error {
	c.invalidated = append(c.invalidated, id)
	delete(c.items, id)
	return nil
}

type publishedEvent struct {
	eventType string
	payload   any
}

type fakeEvents struct {
	events []publishedEvent
	err    error
}

func (e *fakeEvents) Publish(_ context.Context, eventType string, payload any) error {
	e.events = append(e.events, publishedEvent{eventType, payload})
	return e.err
}

func (e *fakeEvents) types() []string {
	out := make([]string, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.eventType
	}
	return out
}

type fakeConversationRepo struct {
	mu       sync.Mutex
	convs    []domain.Conversation
	seq      int
	listErr  error
	findErr  error
	touchErr error
	creates  int
}

func (r *fakeConversationRepo) ListForUser(_ context.Context, userID string) ([]domain.Conversation, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Conversation
	for _, c := range r.convs {
		if c.HasParticipant(userID) {
			c.Messages = append([]domain.Message(nil), c.Messages...)
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeConversationRepo) GetByID(_ context.Context, id string) (*domain.Conversation, error) {
	for _, c := range r.convs {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeConversationRepo) FindByParticipants(_ context.Context, propertyID, a, b string) (*domain.Conversation, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, c := range r.convs {
		if c.PropertyID != propertyID {
			continue
		}
		if (c.LandlordID == a && c.TenantID == b) || (c.LandlordID == b && c.TenantID == a) {
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeConversationRepo) Create(_ context.Context, c domain.Conversation) (*domain.Conversation, error) {
	r.creates++
	r.seq++
	c.ID = fmt.Sprintf("c-%d", r.seq)
	r.convs = append(r.convs, c)
	return &c, nil
}

func (r *fakeConversationRepo) InsertMessage(_ context.Context, m domain.Message) (*domain.Message, error) {
	r.seq++
	m.ID = fmt.Sprintf("m-%d", r.seq)
	for i := range r.convs {
		if r.convs[i].ID == m.ConversationID {
			r.convs[i].Messages = append(r.convs[i].Messages, m)
			return &m, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeConversationRepo) TouchLastMessageAt(_ context.Context, id string, at time.Time) error {
	if r.touchErr != nil {
		return r.touchErr
	}
	for i := range r.convs {
		if r.convs[i].ID == id {
			r.convs[i].LastMessageAt = at
		}
	}
	return nil
}

func (r *fakeConversationRepo) MarkRead(_ context.Context, id, readerID string) (int64, error) {
	var n int64
	for i := range r.convs {
		if r.convs[i].ID != id {
			continue
		}
		for j := range r.convs[i].Messages {
			m := &r.convs[i].Messages[j]
			if m.SenderID != readerID && !m.Read {
				m.Read = true
				n++
			}
		}
	}
	return n, nil
}
