package routes

import (
	"fmt"
	"time"

	"marketplace-server/storage"
	"marketplace-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

type UploadImageInput struct {
	Image string `json:"image" validate:"required"`
}

type UploadVideoInput struct {
	Video string `json:"video" validate:"required"`
	Mime  string `json:"mime"`
}

// UploadImage accepts a base64 data URI and returns the hosted URL. Used by
// product listings, profile avatars and chat attachments alike.
func UploadImage(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input UploadImageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	url := storage.UploadBase64Image(input.Image, uploadID(claims.ID))
	if url == "" {
		utils.CreateError(iris.StatusBadRequest, "Upload Error", "Image could not be uploaded.", ctx)
		return
	}
	ctx.JSON(iris.Map{"url": url})
}

func UploadVideo(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input UploadVideoInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	url := storage.UploadBase64Video(input.Video, uploadID(claims.ID), input.Mime)
	if url == "" {
		utils.CreateError(iris.StatusBadRequest, "Upload Error", "Video could not be uploaded.", ctx)
		return
	}
	ctx.JSON(iris.Map{"url": url})
}

func uploadID(userID uint) string {
	return fmt.Sprintf("u%d-%d", userID, time.Now().UnixNano())
}
