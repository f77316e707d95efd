package shared

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository backs the sharing service in tests and single-process runs.
type MemoryRepository struct {
	mu       sync.RWMutex
	shares   map[string]*Share   // keyed by access token
	comments map[string][]*Comment // keyed by share id, insertion order
	byID     map[string]string   // comment id -> share id
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		shares:   make(map[string]*Share),
		comments: make(map[string][]*Comment),
		byID:     make(map[string]string),
	}
}

func (r *MemoryRepository) CreateShare(ctx context.Context, s *Share) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.shares[s.AccessToken] = &cp
	return nil
}

func (r *MemoryRepository) GetByToken(ctx context.Context, token string) (*Share, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.shares[token]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, ErrTokenNotFound
}

func (r *MemoryRepository) GetShareByID(ctx context.Context, id string) (*Share, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.shares {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrTokenNotFound
}

func (r *MemoryRepository) GetActiveByDraft(ctx context.Context, draftID string, now time.Time) (*Share, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var newest *Share
	for _, s := range r.shares {
		if s.DraftID != draftID || s.State != ShareActive || !s.ExpiresAt.After(now) {
			continue
		}
		if newest == nil || s.CreatedAt.After(newest.CreatedAt) {
			newest = s
		}
	}
	if newest == nil {
		return nil, nil
	}
	cp := *newest
	return &cp, nil
}

func (r *MemoryRepository) UpdateShare(ctx context.Context, s *Share) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shares[s.AccessToken]; !ok {
		return ErrTokenNotFound
	}
	cp := *s
	r.shares[s.AccessToken] = &cp
	return nil
}

func (r *MemoryRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for token, s := range r.shares {
		if !s.ExpiresAt.After(now) {
			delete(r.shares, token)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) AddComment(ctx context.Context, c *Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.comments[c.SharedDraftID] = append(r.comments[c.SharedDraftID], &cp)
	r.byID[c.ID] = c.SharedDraftID
	return nil
}

func (r *MemoryRepository) GetComment(ctx context.Context, id string) (*Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	shareID, ok := r.byID[id]
	if !ok {
		return nil, ErrCommentNotFound
	}
	for _, c := range r.comments[shareID] {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrCommentNotFound
}

func (r *MemoryRepository) ListComments(ctx context.Context, sharedDraftID string) ([]*Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.comments[sharedDraftID]
	out := make([]*Comment, len(src))
	for i, c := range src {
		cp := *c
		out[i] = &cp
	}
	return out, nil
}

func (r *MemoryRepository) UpdateComment(ctx context.Context, c *Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.comments[c.SharedDraftID]
	for i, cur := range list {
		if cur.ID == c.ID {
			cp := *c
			list[i] = &cp
			return nil
		}
	}
	return ErrCommentNotFound
}
