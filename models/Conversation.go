package models

import (
	"time"

	"gorm.io/gorm"
)

// Conversation is a two-party chat channel. Exactly two participant rows
// exist per conversation; creation enforces this, lookups treat anything
// else as a defect. UpdatedAt is bumped on every send and orders the inbox.
type Conversation struct {
	gorm.Model
	Participants []ConversationParticipant `json:"participants" gorm:"foreignKey:ConversationID;references:ID"`
	Messages     []Message                 `json:"messages,omitempty" gorm:"foreignKey:ConversationID;references:ID"`
}

// HasParticipant reports whether the preloaded participant set contains userID.
func (c *Conversation) HasParticipant(userID uint) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// ConversationParticipant is a plain join row with no lifecycle of its own
// beyond the conversation's, so it carries no soft-delete column.
type ConversationParticipant struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ConversationID uint      `json:"conversationID" gorm:"not null;uniqueIndex:idx_conversation_user"`
	UserID         uint      `json:"userID" gorm:"not null;uniqueIndex:idx_conversation_user"`
	User           User      `json:"user" gorm:"foreignKey:UserID;references:ID"`
	CreatedAt      time.Time `json:"createdAt"`
}
