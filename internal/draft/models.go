package draft

import "time"

// Status is the closed draft lifecycle enumeration. Transitions between
// statuses are validated centrally, see transitions.go.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusScheduled       Status = "scheduled"
	StatusPublished       Status = "published"
	StatusCancelled       Status = "cancelled"
	StatusFailed          Status = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusPublished, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// Kind distinguishes a single-post draft from an ordered thread.
type Kind string

const (
	KindTweet  Kind = "tweet"
	KindThread Kind = "thread"
)

// Post is one tweet inside a draft. MediaIDs are opaque references owned by
// the media store; the lifecycle engine never dereferences them.
type Post struct {
	ID          string   `json:"id" bson:"id"`
	Content     string   `json:"content" bson:"content"`
	MediaIDs    []string `json:"mediaIds,omitempty" bson:"mediaIds,omitempty"`
	Position    int      `json:"position" bson:"position"`
	ContentHash string   `json:"contentHash,omitempty" bson:"contentHash,omitempty"`
}

// Draft is the unit of approval and scheduling: a tweet or an ordered thread.
type Draft struct {
	ID       string `json:"id" bson:"id"`
	AuthorID string `json:"authorId" bson:"authorId"`
	TeamID   string `json:"teamId" bson:"teamId"`
	Kind     Kind   `json:"kind" bson:"kind"`
	Posts    []Post `json:"posts" bson:"posts"`
	Status   Status `json:"status" bson:"status"`

	// ContentHash is derived from the posts only; ids, timestamps and the
	// author never feed into it.
	ContentHash string `json:"contentHash,omitempty" bson:"contentHash,omitempty"`

	RejectionReason string `json:"rejectionReason,omitempty" bson:"rejectionReason,omitempty"`

	// Set while the draft holds a reserved slot.
	SlotID       string     `json:"slotId,omitempty" bson:"slotId,omitempty"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty" bson:"scheduledFor,omitempty"`

	ExternalPostID   string `json:"externalPostId,omitempty" bson:"externalPostId,omitempty"`
	DispatchAttempts int    `json:"dispatchAttempts,omitempty" bson:"dispatchAttempts,omitempty"`

	// Version guards optimistic writes; every successful update increments it.
	Version   int64     `json:"version" bson:"version"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Clone returns a deep copy so repository callers can mutate freely.
func (d *Draft) Clone() *Draft {
	cp := *d
	cp.Posts = make([]Post, len(d.Posts))
	copy(cp.Posts, d.Posts)
	for i := range cp.Posts {
		if len(d.Posts[i].MediaIDs) > 0 {
			cp.Posts[i].MediaIDs = append([]string(nil), d.Posts[i].MediaIDs...)
		}
	}
	if d.ScheduledFor != nil {
		t := *d.ScheduledFor
		cp.ScheduledFor = &t
	}
	return &cp
}
