package models

import "gorm.io/gorm"

// Message belongs to one conversation and one sender. Content, Image, Video
// and ProductID are all optional but at least one must be set.
//
// Two delete flavors exist:
//   - IsDeleted ("unsend for everyone"): sender-only, globally visible; the
//     message stays in every transcript with its payload suppressed.
//   - Deletions ("delete for me"): per-viewer rows; the message disappears
//     from that viewer's transcript and preview only.
type Message struct {
	gorm.Model
	ConversationID uint              `json:"conversationID" gorm:"not null;index"`
	SenderID       uint              `json:"senderID" gorm:"not null;index"`
	Sender         User              `json:"sender" gorm:"foreignKey:SenderID;references:ID"`
	Content        string            `json:"content" gorm:"type:text"`
	Image          string            `json:"image" gorm:"size:512"`
	Video          string            `json:"video" gorm:"size:512"`
	ProductID      *uint             `json:"productID" gorm:"index"`
	Product        *Product          `json:"product,omitempty" gorm:"foreignKey:ProductID;references:ID"`
	IsRead         bool              `json:"isRead" gorm:"default:false"`
	IsDeleted      bool              `json:"isDeleted" gorm:"default:false"`
	Deletions      []MessageDeletion `json:"-" gorm:"foreignKey:MessageID;references:ID"`
}

// DeletedFor reports whether userID chose "delete for me" on this message.
// Requires Deletions to be preloaded.
func (m *Message) DeletedFor(userID uint) bool {
	for _, d := range m.Deletions {
		if d.UserID == userID {
			return true
		}
	}
	return false
}

// MessageDeletion records a per-viewer "delete for me". The composite primary
// key makes the insert idempotent and lets concurrent deletes from different
// users land without a read-modify-write on a shared field.
type MessageDeletion struct {
	MessageID uint `json:"messageID" gorm:"primaryKey;autoIncrement:false"`
	UserID    uint `json:"userID" gorm:"primaryKey;autoIncrement:false"`
}
