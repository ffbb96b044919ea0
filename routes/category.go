package routes

import (
	"marketplace-server/models"
	"marketplace-server/storage"
	"marketplace-server/utils"

	"github.com/kataras/iris/v12"
)

// GetCategories lists all categories for the public catalog filters.
func GetCategories(ctx iris.Context) {
	var categories []models.Category
	if err := storage.DB.Order("name ASC").Find(&categories).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(categories)
}
