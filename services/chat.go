package services

import (
	"strings"
	"sync"
	"time"

	"marketplace-server/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Socket event names fanned out to conversation rooms.
const (
	EventReceiveMessage    = "receive_message"
	EventMessagesRead      = "messages_read"
	EventMessageDeleted    = "message_deleted"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventError             = "error"
)

const (
	DeleteForMe       = "me"
	DeleteForEveryone = "everyone"
)

// previewWindow is how many recent messages are scanned for a visible
// conversation-list preview. If every message in the window is hidden for
// the viewer the preview is empty; an older message is never substituted.
const previewWindow = 10

// Broadcaster fans an event out to every socket currently joined to a
// conversation's room. The chat service is handed one explicitly instead of
// reaching for process-global socket state.
type Broadcaster interface {
	Broadcast(conversationID uint, event string, data interface{})
}

// ChatService owns conversation, message and visibility state. All mutations
// go through the store; broadcast payloads are re-read after write, never
// cached.
type ChatService struct {
	db          *gorm.DB
	broadcaster Broadcaster

	// Serializes writes per conversation so concurrent sends cannot
	// interleave their updatedAt bumps.
	convLocks sync.Map // conversationID -> *sync.Mutex
}

func NewChatService(db *gorm.DB, broadcaster Broadcaster) *ChatService {
	return &ChatService{db: db, broadcaster: broadcaster}
}

// SetBroadcaster wires the socket hub in after construction.
func (s *ChatService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

func (s *ChatService) broadcast(conversationID uint, event string, data interface{}) {
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(conversationID, event, data)
	}
}

func (s *ChatService) lockConversation(conversationID uint) *sync.Mutex {
	mu, _ := s.convLocks.LoadOrStore(conversationID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// IsParticipant reports whether userID belongs to the conversation.
func (s *ChatService) IsParticipant(conversationID, userID uint) bool {
	var count int64
	s.db.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count)
	return count > 0
}

// StartConversation finds or creates the two-party conversation between
// currentUserID and targetUserID. At most one conversation exists per
// unordered pair; a lookup hit with anything but exactly two participants is
// treated as a defect and never returned as a match.
func (s *ChatService) StartConversation(currentUserID, targetUserID uint) (*models.Conversation, bool, error) {
	if targetUserID == 0 {
		return nil, false, ErrTargetRequired
	}
	if targetUserID == currentUserID {
		return nil, false, ErrSelfConversation
	}

	var target models.User
	if err := s.db.First(&target, targetUserID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, false, ErrUserNotFound
		}
		return nil, false, err
	}

	var existing models.Conversation
	err := s.db.
		Joins("JOIN conversation_participants p1 ON p1.conversation_id = conversations.id").
		Joins("JOIN conversation_participants p2 ON p2.conversation_id = conversations.id").
		Where("p1.user_id = ? AND p2.user_id = ?", currentUserID, targetUserID).
		First(&existing).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, false, err
	}

	if err == nil {
		var participantCount int64
		s.db.Model(&models.ConversationParticipant{}).
			Where("conversation_id = ?", existing.ID).
			Count(&participantCount)
		if participantCount == 2 {
			conv, loadErr := s.loadConversation(existing.ID, currentUserID)
			return conv, false, loadErr
		}
		// Conversation with a broken participant set; fall through and
		// create a clean one rather than matching it.
	}

	var created models.Conversation
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		participants := []models.ConversationParticipant{
			{ConversationID: created.ID, UserID: currentUserID},
			{ConversationID: created.ID, UserID: targetUserID},
		}
		return tx.Create(&participants).Error
	})
	if txErr != nil {
		return nil, false, txErr
	}

	conv, err := s.loadConversation(created.ID, currentUserID)
	return conv, true, err
}

// loadConversation returns the conversation with its participant users and
// the latest message visible to viewerID, so a find-or-create hit carries
// the same preview the inbox shows.
func (s *ChatService) loadConversation(id, viewerID uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.
		Preload("Participants.User").
		First(&conv, id).Error
	if err != nil {
		return nil, err
	}
	conv.Messages, err = s.previewFor(id, viewerID)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// previewFor scans the recent window newest-first for one message visible to
// viewerID. A window with no visible message yields an empty preview rather
// than reaching past it.
func (s *ChatService) previewFor(conversationID, viewerID uint) ([]models.Message, error) {
	var recent []models.Message
	err := s.db.
		Where("conversation_id = ?", conversationID).
		Preload("Sender").
		Preload("Deletions").
		Order("id DESC").
		Limit(previewWindow).
		Find(&recent).Error
	if err != nil {
		return nil, err
	}
	for _, m := range recent {
		if m.DeletedFor(viewerID) {
			continue
		}
		if m.IsDeleted {
			m = RedactUnsent(m)
		}
		return []models.Message{m}, nil
	}
	return []models.Message{}, nil
}

// ConversationSummary is the inbox entry: the conversation, the other side's
// public profile, and at most one preview message already filtered for the
// requesting viewer.
type ConversationSummary struct {
	ID           uint                             `json:"id"`
	CreatedAt    time.Time                        `json:"createdAt"`
	UpdatedAt    time.Time                        `json:"updatedAt"`
	Participants []models.ConversationParticipant `json:"participants"`
	OtherUser    models.PublicUser                `json:"otherUser"`
	Messages     []models.Message                 `json:"messages"`
}

// GetConversations lists the user's conversations newest-activity first. The
// preview is the most recent message visible to this user; if the recent
// window is entirely hidden the preview is empty.
func (s *ChatService) GetConversations(userID uint) ([]ConversationSummary, error) {
	var conversations []models.Conversation
	err := s.db.
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ?", userID).
		Preload("Participants.User").
		Order("conversations.updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		summary := ConversationSummary{
			ID:           conv.ID,
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
			Participants: conv.Participants,
			Messages:     []models.Message{},
		}
		for _, p := range conv.Participants {
			if p.UserID != userID {
				summary.OtherUser = p.User.Public()
			}
		}

		preview, err := s.previewFor(conv.ID, userID)
		if err != nil {
			return nil, err
		}
		summary.Messages = preview

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetMessages returns the full transcript visible to userID and marks the
// other side's messages as read (the fetch implies viewing).
func (s *ChatService) GetMessages(conversationID, userID uint) ([]models.Message, error) {
	if !s.IsParticipant(conversationID, userID) {
		return nil, ErrConversationNotFound
	}

	if err := s.MarkRead(conversationID, userID); err != nil {
		return nil, err
	}

	var msgs []models.Message
	err := s.db.
		Where("conversation_id = ?", conversationID).
		Preload("Sender").
		Preload("Product").
		Preload("Product.Owner").
		Preload("Product.Category").
		Preload("Deletions").
		Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}

	return FilterVisible(msgs, userID), nil
}

type SendMessageInput struct {
	Content   string `json:"content"`
	Image     string `json:"image"`
	Video     string `json:"video"`
	ProductID *uint  `json:"productId"`
}

func (in *SendMessageInput) empty() bool {
	return strings.TrimSpace(in.Content) == "" && in.Image == "" && in.Video == "" && in.ProductID == nil
}

// SendMessage validates and persists a message, bumps the conversation's
// activity timestamp, and broadcasts the enriched record to the room. The
// sender's own connections are included so their other tabs update.
func (s *ChatService) SendMessage(conversationID, senderID uint, in SendMessageInput) (*models.Message, error) {
	if in.empty() {
		return nil, ErrEmptyMessage
	}
	if !s.IsParticipant(conversationID, senderID) {
		return nil, ErrNotParticipant
	}

	mu := s.lockConversation(conversationID)
	mu.Lock()
	defer mu.Unlock()

	msg := models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        strings.TrimSpace(in.Content),
		Image:          in.Image,
		Video:          in.Video,
		ProductID:      in.ProductID,
		IsRead:         false,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conversationID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return nil, err
	}

	enriched, err := s.loadMessage(msg.ID)
	if err != nil {
		return nil, err
	}

	s.broadcast(conversationID, EventReceiveMessage, enriched)
	return enriched, nil
}

func (s *ChatService) loadMessage(id uint) (*models.Message, error) {
	var msg models.Message
	err := s.db.
		Preload("Sender").
		Preload("Product").
		Preload("Product.Owner").
		Preload("Product.Category").
		Preload("Deletions").
		First(&msg, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// MarkRead flags every message the reader did not send as read. Idempotent:
// join, explicit mark_read and the transcript fetch all trigger it and may
// overlap freely.
func (s *ChatService) MarkRead(conversationID, readerID uint) error {
	return s.db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id != ? AND is_read = ?", conversationID, readerID, false).
		Update("is_read", true).Error
}

// MessageDeletedPayload is the room-wide delete notification. For
// deleteType "me" only the acting user's clients act on it; everyone else
// ignores it by filtering on UserID.
type MessageDeletedPayload struct {
	MessageID      uint   `json:"messageId"`
	ConversationID uint   `json:"conversationId"`
	DeleteType     string `json:"deleteType"`
	UserID         uint   `json:"userId,omitempty"`
}

// DeleteMessage applies one of the two delete flavors and notifies the room.
//
//   - "everyone": sender-only unsend; the message is kept with its payload
//     suppressed for all viewers.
//   - "me": per-viewer hide; an idempotent insert so concurrent deletes from
//     different users cannot lose each other.
func (s *ChatService) DeleteMessage(messageID, requesterID uint, deleteType string) (*models.Message, error) {
	msg, err := s.loadMessage(messageID)
	if err != nil {
		return nil, err
	}

	switch deleteType {
	case DeleteForEveryone:
		if msg.SenderID != requesterID {
			return nil, ErrNotSender
		}
		if err := s.db.Model(&models.Message{}).
			Where("id = ?", messageID).
			Update("is_deleted", true).Error; err != nil {
			return nil, err
		}
		s.broadcast(msg.ConversationID, EventMessageDeleted, MessageDeletedPayload{
			MessageID:      messageID,
			ConversationID: msg.ConversationID,
			DeleteType:     DeleteForEveryone,
		})

	case DeleteForMe:
		deletion := models.MessageDeletion{MessageID: messageID, UserID: requesterID}
		if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&deletion).Error; err != nil {
			return nil, err
		}
		s.broadcast(msg.ConversationID, EventMessageDeleted, MessageDeletedPayload{
			MessageID:      messageID,
			ConversationID: msg.ConversationID,
			DeleteType:     DeleteForMe,
			UserID:         requesterID,
		})

	default:
		return nil, ErrInvalidDeleteType
	}

	return s.loadMessage(messageID)
}
