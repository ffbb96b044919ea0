package services

import "errors"

// Chat errors, mapped onto HTTP statuses / socket error events by callers.
var (
	// validation (400)
	ErrTargetRequired    = errors.New("target user ID is required")
	ErrSelfConversation  = errors.New("cannot start conversation with yourself")
	ErrEmptyMessage      = errors.New("message content, image, video, or product is required")
	ErrInvalidDeleteType = errors.New("invalid delete type")

	// authorization (401/403)
	ErrNotParticipant = errors.New("not a participant of this conversation")
	ErrNotSender      = errors.New("only the sender can delete this message for everyone")

	// not found (404)
	ErrConversationNotFound = errors.New("conversation not found or access denied")
	ErrMessageNotFound      = errors.New("message not found")
	ErrUserNotFound         = errors.New("user not found")
)
