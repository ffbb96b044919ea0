package services

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"marketplace-server/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// recordingBroadcaster captures room events instead of touching sockets.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	ConversationID uint
	Event          string
	Data           interface{}
}

func (r *recordingBroadcaster) Broadcast(conversationID uint, event string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{ConversationID: conversationID, Event: event, Data: data})
}

func (r *recordingBroadcaster) byName(event string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func newTestService(t *testing.T) (*ChatService, *recordingBroadcaster, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	// One connection: sqlite's shared-cache table locks would otherwise turn
	// concurrent writers into lock errors instead of queued writes.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.MessageDeletion{},
	)
	if err != nil {
		t.Fatalf("migrating test db: %v", err)
	}

	broadcaster := &recordingBroadcaster{}
	return NewChatService(db, broadcaster), broadcaster, db
}

func createTestUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()
	user := models.User{Name: name, Email: strings.ToLower(name) + "@example.com", Password: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("creating user %s: %v", name, err)
	}
	return user
}

func TestStartConversationCreatesOnce(t *testing.T) {
	svc, _, db := newTestService(t)
	alice := createTestUser(t, db, "Alice")
	bob := createTestUser(t, db, "Bob")

	conv, created, err := svc.StartConversation(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	if !created {
		t.Fatal("expected first start to create a conversation")
	}
	if len(conv.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(conv.Participants))
	}

	again, created, err := svc.StartConversation(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if created {
		t.Fatal("expected second start to reuse the conversation")
	}
	if again.ID != conv.ID {
		t.Fatalf("expected conversation %d, got %d", conv.ID, again.ID)
	}
}

func TestStartConversationSymmetric(t *testing.T) {
	svc, _, db := newTestService(t)
	alice := createTestUser(t, db, "Alice")
	bob := createTestUser(t, db, "Bob")

	conv, _, err := svc.StartConversation(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("start a->b: %v", err)
	}

	reversed, created, err := svc.StartConversation(bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("start b->a: %v", err)
	}
	if created || reversed.ID != conv.ID {
		t.Fatalf("expected b->a to find conversation %d, got %d (created=%v)", conv.ID, reversed.ID, created)
	}
}

func TestStartConversationReturnsLatestMessage(t *testing.T) {
	svc, _, db := newTestService(t)
	alice := createTestUser(t, db, "Alice")
	bob := createTestUser(t, db, "Bob")

	conv, _, _ := svc.StartConversation(alice.ID, bob.ID)
	if len(conv.Messages) != 0 {
		t.Fatalf("fresh conversation must have no preview, got %d", len(conv.Messages))
	}

	svc.SendMessage(conv.ID, alice.ID, SendMessageInput{Content: "hi"})
	svc.SendMessage(conv.ID, bob.ID, SendMessageInput{Content: "hello"})

	found, created, err := svc.StartConversation(alice.ID, bob.ID)
	if err != nil || created {
		t.Fatalf("expected lookup hit, got created=%v err=%v", created, err)
	}
	if len(found.Messages) != 1 || found.Messages[0].Content != "hello" {
		t.Fatalf("expected latest message preview, got %+v", found.Messages)
	}

	// The preview honors per-viewer deletions for the requesting user.
	svc.DeleteMessage(found.Messages[0].ID, alice.ID, DeleteForMe)
	hidden, _, err := svc.StartConversation(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("lookup after delete: %v", err)
	}
	if len(hidden.Messages) != 1 || hidden.Messages[0].Content != "hi" {
		t.Fatalf("expected next visible message for alice, got %+v", hidden.Messages)
	}
}

func TestStartConversationValidation(t *testing.T) {
	svc, _, db := newTestService(t)
	alice := createTestUser(t, db, "Alice")

	if _, _, err := svc.StartConversation(alice.ID, 0); err != ErrTargetRequired {
		t.Fatalf("expected ErrTargetRequired, got %v", err)
	}
	if _, _, err := svc.StartConversation(alice.ID, alice.ID); err != ErrSelfConversation {
		t.Fatalf("expected ErrSelfConversation, got %v", err)
	}
	if _, _, err := svc.StartConversation(alice.ID, 9999); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSendMessageValidatesAndBroadcasts(t *testing.T) {
	svc, broadcaster, db := newTestService(t)
	alice := createTestUser(t, db, "Alice")
	bob := createTestUser(t, db, "Bob")
	eve := createTestUser(t, db, "Eve")
	conv, _, _ := svc.StartConversation(alice.ID, bob.ID)

	if _, err := svc.SendMessage(conv.ID, alice.ID, SendMessageInput{Content: "   "}); err != ErrEmptyMessage {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := svc.SendMessage(conv.ID, eve.ID, SendMessageInput{Content: "hi"}); err != ErrNotParticipant {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}

	msg, err := svc.SendMessage(conv.ID, alice.ID, SendMessageInput{Content: "hello"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Sender.ID != alice.ID {
		t.Fatalf("expected enriched sender %d, got %d", alice.ID, msg.Sender.ID)
	}

	received := broadcaster.byName(EventReceiveMessage)
	if len(received) != 1 || received[0].ConversationID != conv.ID {
		t.Fatalf("expected one receive_message broadcast to conversation %d, got %+v", conv.ID, received)
	}
}

func TestMessagesOrderedBySendTime(t *testing.T) {
	svc, _, db := newTestService(t)
	alice := createTestUser(t, db, "Alice")
	bob := createTestUser(t, db, "Bob")
	conv, _, _ := svc.StartConversation(alice.ID, bob.ID)

	for i, content := range []string{"one", "two", "three"} {
		sender := alice.ID
		if i%2 == 1 {
			sender = bob.ID
		}
		if _, err := svc.SendMessage(conv.ID, sender, SendMessageInput{Content: content}); err != nil {
			t.Fatalf("send %q: %v", content, err)
		}
	}

	msgs, err := svc.GetMessages(conv.ID, alice.ID)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].ID <= msgs[i-1].ID {
			t.Fatalf("messages out of order at index %d", i)
		}
	}
}

func TestGetMessagesMarksReadAndGuards(t *testing.T) {
	svc, _, db := newTestService(t)
	alice := createTestUser(t, db, "Alice")
	bob := createTestUser(t, db, "Bob")
	eve := createTestUser(t, db, "Eve")
	conv, _, _ := svc.StartConversation(alice.ID, bob.ID)
	svc.SendMessage(conv.ID, alice.ID, SendMessageInput{Content: "hello"})

	if _, err := svc.GetMessages(conv.ID, eve.ID); err != ErrConversationNotFound {
		t.Fatalf("expected ErrConversationNotFound for non-participant, got %v", err)
	}

	msgs, err := svc.GetMessages(conv.ID, bob.ID)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if !msgs[0].IsRead {
		t.Fatal("expected fetch to mark the other side's message read")
	}

	// The sender fetching their own transcript must not mark their own
	// unread messages.
	svc.SendMessage(conv.ID, bob.ID, SendMessageInput{Content: "reply"})
	msgs, _ = svc.GetMessages(conv.ID, bob.ID)
	for _, m := range msgs {
		if m.SenderID == bob.ID && m.Content == "reply" && m.IsRead {
			t.Fatal("reader's own message should stay unread")
		}
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	svc, _, db := newTestService(t)
	alice := createTestUser(t, db, "Alice")
	bob := createTestUser(t, db, "Bob")
	conv, _, _ := svc.StartConversation(alice.ID, bob.ID)
	svc.SendMessage(conv.ID, alice.ID, SendMessageInput{Content: "hello"})

	for i := 0; i < 3; i++ {
		if err := svc.MarkRead(conv.ID, bob.ID); err != nil {
			t.Fatalf("mark read pass %d: %v", i, err)
		}
	}

	var unread int64
	db.Model(&models.Message{}).
		Where("conversation_id = ? AND is_read = ?", conv.ID, false).
		Count(&unread)
	if unread != 0 {
		t.Fatalf("expected 0 unread messages, got %d", unread)
	}
}

func TestUnsendForEveryone(t *testing.T) {
	svc, broadcaster, db := newTestService(t)
	alice := createTestUser(t, db, "Alice")
	bob := createTestUser(t, db, "Bob")
	conv, _, _ := svc.StartConversation(alice.ID, bob.ID)
	msg, _ := svc.SendMessage(conv.ID, alice.ID, SendMessageInput{Content: "oops"})

	if _, err := svc.DeleteMessage(msg.ID, bob.ID, DeleteForEveryone); err != ErrNotSender {
		t.Fatalf("expected ErrNotSender for non-sender unsend, got %v", err)
	}

	if _, err := svc.DeleteMessage(msg.ID, alice.ID, DeleteForEveryone); err != nil {
		t.Fatalf("unsend: %v", err)
	}

	for _, viewer := range []uint{alice.ID, bob.ID} {
		msgs, err := svc.GetMessages(conv.ID, viewer)
		if err != nil {
			t.Fatalf("get messages for %d: %v", viewer, err)
		}
		if len(msgs) != 1 {
			t.Fatalf("expected unsent message to stay in transcript, got %d messages", len(msgs))
		}
		if !msgs[0].IsDeleted || msgs[0].Content != "" {
			t.Fatalf("expected redacted placeholder, got %+v", msgs[0])
		}
	}

	deleted := broadcaster.byName(EventMessageDeleted)
	if len(deleted) != 1 {
		t.Fatalf("expected one message_deleted broadcast, got %d", len(deleted))
	}
	payload := deleted[0].Data.(MessageDeletedPayload)
	if payload.DeleteType != DeleteForEveryone || payload.MessageID != msg.ID {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestDeleteForMeHidesOnlyForActor(t *testing.T) {
	svc, _, db := newTestService(t)
	alice := createTestUser(t, db, "Alice")
	bob := createTestUser(t, db, "Bob")
	conv, _, _ := svc.StartConversation(alice.ID, bob.ID)
	msg, _ := svc.SendMessage(conv.ID, alice.ID, SendMessageInput{Content: "keep this"})

	if _, err := svc.DeleteMessage(msg.ID, bob.ID, DeleteForMe); err != nil {
		t.Fatalf("delete for me: %v", err)
	}

	bobView, _ := svc.GetMessages(conv.ID, bob.ID)
	if len(bobView) != 0 {
		t.Fatalf("expected message hidden for bob, got %d messages", len(bobView))
	}

	aliceView, _ := svc.GetMessages(conv.ID, alice.ID)
	if len(aliceView) != 1 || aliceView[0].Content != "keep this" {
		t.Fatalf("expected message intact for alice, got %+v", aliceView)
	}
}

func TestDeleteForMeConcurrentBothPersist(t *testing.T) {
	svc, _, db := newTestService(t)
	alice := createTestUser(t, db, "Alice")
	bob := createTestUser(t, db, "Bob")
	conv, _, _ := svc.StartConversation(alice.ID, bob.ID)
	msg, _ := svc.SendMessage(conv.ID, alice.ID, SendMessageInput{Content: "gone for both"})

	// Both participants delete for themselves at the same time; the
	// insert-with-conflict path must not lose either row.
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, userID := range []uint{alice.ID, bob.ID} {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, err := svc.DeleteMessage(msg.ID, userID, DeleteForMe)
			errs <- err
		}(userID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent delete: %v", err)
		}
	}

	// Repeating is a no-op, not an error.
	if _, err := svc.DeleteMessage(msg.ID, bob.ID, DeleteForMe); err != nil {
		t.Fatalf("repeated delete: %v", err)
	}

	var rows int64
	db.Model(&models.MessageDeletion{}).Where("message_id = ?", msg.ID).Count(&rows)
	if rows != 2 {
		t.Fatalf("expected one deletion row per user, got %d", rows)
	}
}

func TestDeleteMessageInvalidType(t *testing.T) {
	svc, _, db := newTestService(t)
	alice := createTestUser(t, db, "Alice")
	bob := createTestUser(t, db, "Bob")
	conv, _, _ := svc.StartConversation(alice.ID, bob.ID)
	msg, _ := svc.SendMessage(conv.ID, alice.ID, SendMessageInput{Content: "hi"})

	if _, err := svc.DeleteMessage(msg.ID, alice.ID, "both"); err != ErrInvalidDeleteType {
		t.Fatalf("expected ErrInvalidDeleteType, got %v", err)
	}
	if _, err := svc.DeleteMessage(9999, alice.ID, DeleteForMe); err != ErrMessageNotFound {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestConversationPreviewRespectsVisibility(t *testing.T) {
	svc, _, db := newTestService(t)
	alice := createTestUser(t, db, "Alice")
	bob := createTestUser(t, db, "Bob")
	conv, _, _ := svc.StartConversation(alice.ID, bob.ID)
	msg, _ := svc.SendMessage(conv.ID, alice.ID, SendMessageInput{Content: "latest"})
	svc.DeleteMessage(msg.ID, bob.ID, DeleteForMe)

	aliceInbox, err := svc.GetConversations(alice.ID)
	if err != nil {
		t.Fatalf("alice inbox: %v", err)
	}
	if len(aliceInbox) != 1 || len(aliceInbox[0].Messages) != 1 {
		t.Fatalf("expected preview for alice, got %+v", aliceInbox)
	}
	if aliceInbox[0].OtherUser.ID != bob.ID {
		t.Fatalf("expected other user %d, got %d", bob.ID, aliceInbox[0].OtherUser.ID)
	}

	bobInbox, err := svc.GetConversations(bob.ID)
	if err != nil {
		t.Fatalf("bob inbox: %v", err)
	}
	if len(bobInbox) != 1 {
		t.Fatalf("expected conversation in bob's inbox, got %d", len(bobInbox))
	}
	if len(bobInbox[0].Messages) != 0 {
		t.Fatalf("expected no preview for bob, got %+v", bobInbox[0].Messages)
	}
}

func TestConversationPreviewRedactsUnsent(t *testing.T) {
	svc, _, db := newTestService(t)
	alice := createTestUser(t, db, "Alice")
	bob := createTestUser(t, db, "Bob")
	conv, _, _ := svc.StartConversation(alice.ID, bob.ID)
	msg, _ := svc.SendMessage(conv.ID, alice.ID, SendMessageInput{Content: "secret"})
	svc.DeleteMessage(msg.ID, alice.ID, DeleteForEveryone)

	inbox, err := svc.GetConversations(bob.ID)
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	if len(inbox) != 1 || len(inbox[0].Messages) != 1 {
		t.Fatalf("expected one preview, got %+v", inbox)
	}
	preview := inbox[0].Messages[0]
	if !preview.IsDeleted || preview.Content != "" {
		t.Fatalf("expected redacted preview, got %+v", preview)
	}
}
