package models

import (
	"time"

	"gorm.io/datatypes"
)

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession groups the question/answer turns of one conversation. Sessions
// are created lazily on the first query that supplies a session token.
type ChatSession struct {
	ID           string         `gorm:"type:char(36);primaryKey"`
	SessionToken string         `gorm:"uniqueIndex;not null;size:255"` // externally visible identifier
	OwnerID      string         `gorm:"index;not null;size:255"`
	Title        string         `gorm:"size:512"`
	Metadata     datatypes.JSON `gorm:"type:json"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Messages []ChatMessage `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

// ChatMessage is a single turn within a session. Two rows are written per
// answered query, one user and one assistant; rows are never mutated.
type ChatMessage struct {
	ID        string `gorm:"type:char(36);primaryKey"`
	SessionID string `gorm:"type:char(36);index;not null"`
	// Ordinal orders messages within a session. CreatedAt is not reliable for
	// ordering: MySQL stores it at millisecond precision, and both rows of a
	// turn usually land in the same millisecond.
	Ordinal int            `gorm:"index;not null"`
	Role    string         `gorm:"not null;size:16"` // "user" or "assistant"
	Content string         `gorm:"type:text;not null"`
	Sources datatypes.JSON `gorm:"type:json"` // retrieved chunk summaries, assistant turns only
	// TokensUsed is a local tokenizer estimate, not the provider's billed count.
	TokensUsed       int
	ProcessingTimeMs int64
	CreatedAt        time.Time
}
