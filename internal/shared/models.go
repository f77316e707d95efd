package shared

import (
	"errors"
	"time"
)

var (
	ErrTokenNotFound     = errors.New("share token not found")
	ErrTokenExpired      = errors.New("share token expired")
	ErrCommentsDisabled  = errors.New("comments are disabled for this share")
	ErrCommentNotFound   = errors.New("comment not found")
)

// ShareState rules a share in or out without deleting its comment history.
type ShareState string

const (
	ShareActive  ShareState = "active"
	ShareRevoked ShareState = "revoked"
)

// Share grants unauthenticated read (and optionally comment) access to one
// draft through an unguessable token.
type Share struct {
	ID          string     `json:"id" bson:"id"`
	DraftID     string     `json:"draftId" bson:"draftId"`
	TeamID      string     `json:"teamId" bson:"teamId"`
	CreatorID   string     `json:"creatorId" bson:"creatorId"`
	AccessToken string     `json:"accessToken" bson:"accessToken"`
	CanComment  bool       `json:"canComment" bson:"canComment"`
	State       ShareState `json:"shareState" bson:"shareState"`
	AuthorName  string     `json:"authorName,omitempty" bson:"authorName,omitempty"`
	ExpiresAt   time.Time  `json:"expiresAt" bson:"expiresAt"`
	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
}

// Comment is append-only feedback on a shared draft. AuthorID is empty for
// anonymous commenters; only the resolved flag may change after creation.
type Comment struct {
	ID            string     `json:"id" bson:"id"`
	SharedDraftID string     `json:"sharedDraftId" bson:"sharedDraftId"`
	Content       string     `json:"content" bson:"content"`
	AuthorID      string     `json:"authorId,omitempty" bson:"authorId,omitempty"`
	AuthorName    string     `json:"authorName" bson:"authorName"`
	CreatedAt     time.Time  `json:"createdAt" bson:"createdAt"`
	Resolved      bool       `json:"resolved" bson:"resolved"`
	ResolvedAt    *time.Time `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
	ResolvedBy    string     `json:"resolvedBy,omitempty" bson:"resolvedBy,omitempty"`
}
