package routes

import (
	"marketplace-server/services"
	"marketplace-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// Chat handlers close over the chat service instead of reaching for globals,
// so tests can stand up a service against their own database.

type StartConversationInput struct {
	TargetUserID uint `json:"targetUserId"`
}

type DeleteMessageInput struct {
	DeleteType string `json:"deleteType" validate:"required"`
}

// StartConversation finds or creates the conversation between the caller and
// the target user. 201 when a new conversation was created, 200 otherwise.
func StartConversation(chat *services.ChatService) iris.Handler {
	return func(ctx iris.Context) {
		claims := jwt.Get(ctx).(*utils.AccessToken)

		var input StartConversationInput
		if err := ctx.ReadJSON(&input); err != nil {
			utils.HandleValidationErrors(err, ctx)
			return
		}

		conv, created, err := chat.StartConversation(claims.ID, input.TargetUserID)
		if err != nil {
			handleChatError(ctx, err)
			return
		}

		if created {
			ctx.StatusCode(iris.StatusCreated)
		}
		ctx.JSON(conv)
	}
}

// GetConversations lists the caller's inbox, newest activity first.
func GetConversations(chat *services.ChatService) iris.Handler {
	return func(ctx iris.Context) {
		claims := jwt.Get(ctx).(*utils.AccessToken)

		summaries, err := chat.GetConversations(claims.ID)
		if err != nil {
			handleChatError(ctx, err)
			return
		}
		ctx.JSON(summaries)
	}
}

// GetMessages returns the transcript visible to the caller and marks the
// other side's messages read.
func GetMessages(chat *services.ChatService) iris.Handler {
	return func(ctx iris.Context) {
		claims := jwt.Get(ctx).(*utils.AccessToken)
		conversationID, err := ctx.Params().GetUint("id")
		if err != nil {
			ctx.StopWithStatus(iris.StatusBadRequest)
			return
		}

		msgs, chatErr := chat.GetMessages(conversationID, claims.ID)
		if chatErr != nil {
			handleChatError(ctx, chatErr)
			return
		}
		ctx.JSON(msgs)
	}
}

// SendMessage is the REST fallback for clients without a live socket. The
// service still broadcasts the result to any connected room members.
func SendMessage(chat *services.ChatService) iris.Handler {
	return func(ctx iris.Context) {
		claims := jwt.Get(ctx).(*utils.AccessToken)
		conversationID, err := ctx.Params().GetUint("id")
		if err != nil {
			ctx.StopWithStatus(iris.StatusBadRequest)
			return
		}

		var input services.SendMessageInput
		if err := ctx.ReadJSON(&input); err != nil {
			utils.HandleValidationErrors(err, ctx)
			return
		}

		msg, chatErr := chat.SendMessage(conversationID, claims.ID, input)
		if chatErr != nil {
			handleChatError(ctx, chatErr)
			return
		}
		ctx.StatusCode(iris.StatusCreated)
		ctx.JSON(msg)
	}
}

// DeleteMessage applies "me" or "everyone" deletion to a single message.
func DeleteMessage(chat *services.ChatService) iris.Handler {
	return func(ctx iris.Context) {
		claims := jwt.Get(ctx).(*utils.AccessToken)
		messageID, err := ctx.Params().GetUint("id")
		if err != nil {
			ctx.StopWithStatus(iris.StatusBadRequest)
			return
		}

		var input DeleteMessageInput
		if err := ctx.ReadJSON(&input); err != nil {
			utils.HandleValidationErrors(err, ctx)
			return
		}

		msg, chatErr := chat.DeleteMessage(messageID, claims.ID, input.DeleteType)
		if chatErr != nil {
			handleChatError(ctx, chatErr)
			return
		}
		ctx.JSON(msg)
	}
}

// handleChatError maps service sentinels onto HTTP statuses.
func handleChatError(ctx iris.Context, err error) {
	switch err {
	case services.ErrTargetRequired, services.ErrSelfConversation,
		services.ErrEmptyMessage, services.ErrInvalidDeleteType:
		utils.CreateError(iris.StatusBadRequest, "Bad Request", err.Error(), ctx)
	case services.ErrNotParticipant, services.ErrNotSender:
		utils.CreateError(iris.StatusUnauthorized, "Authorization Error", err.Error(), ctx)
	case services.ErrConversationNotFound, services.ErrMessageNotFound, services.ErrUserNotFound:
		utils.CreateError(iris.StatusNotFound, "Not Found", err.Error(), ctx)
	default:
		utils.CreateInternalServerError(ctx)
	}
}
