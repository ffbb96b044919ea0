package routes

import (
	"net/http"

	"marketplace-server/models"
	"marketplace-server/storage"
	"marketplace-server/utils"

	"github.com/kataras/iris/v12"
)

type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description" validate:"max=1024"`
}

// AdminListCategories - GET /admin/categories with per-category listing counts
func AdminListCategories(ctx iris.Context) {
	var categories []models.Category
	if err := storage.DB.Order("name ASC").Find(&categories).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	type categoryWithCount struct {
		models.Category
		ProductCount int64 `json:"productCount"`
	}
	out := make([]categoryWithCount, 0, len(categories))
	for _, c := range categories {
		var count int64
		storage.DB.Model(&models.Product{}).Where("category_id = ?", c.ID).Count(&count)
		out = append(out, categoryWithCount{Category: c, ProductCount: count})
	}

	ctx.JSON(iris.Map{"data": out, "meta": iris.Map{}, "links": iris.Map{}})
}

// AdminCreateCategory - POST /admin/categories
func AdminCreateCategory(ctx iris.Context) {
	var input CategoryInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	category := models.Category{Name: input.Name, Description: input.Description}
	if err := storage.DB.Create(&category).Error; err != nil {
		ctx.StopWithJSON(http.StatusConflict, iris.Map{"error": "conflict", "message": "category already exists"})
		return
	}

	utils.Audit(ctx, "category.create", "category", category.ID, nil, category)

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"data": category})
}

// AdminUpdateCategory - PATCH /admin/categories/:id
func AdminUpdateCategory(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithJSON(http.StatusBadRequest, iris.Map{"error": "invalid_id"})
		return
	}

	var input CategoryInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var category models.Category
	if err := storage.DB.First(&category, id).Error; err != nil {
		ctx.StopWithJSON(http.StatusNotFound, iris.Map{"error": "not_found"})
		return
	}

	before := category
	category.Name = input.Name
	category.Description = input.Description
	if err := storage.DB.Save(&category).Error; err != nil {
		ctx.StopWithJSON(http.StatusInternalServerError, iris.Map{"error": "server_error"})
		return
	}

	utils.Audit(ctx, "category.update", "category", category.ID, before, category)

	ctx.JSON(iris.Map{"data": category})
}

// AdminDeleteCategory - DELETE /admin/categories/:id. Listings in the
// category survive uncategorized.
func AdminDeleteCategory(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithJSON(http.StatusBadRequest, iris.Map{"error": "invalid_id"})
		return
	}

	var category models.Category
	if err := storage.DB.First(&category, id).Error; err != nil {
		ctx.StopWithJSON(http.StatusNotFound, iris.Map{"error": "not_found"})
		return
	}

	before := category
	storage.DB.Model(&models.Product{}).
		Where("category_id = ?", id).
		Update("category_id", nil)
	if err := storage.DB.Delete(&category).Error; err != nil {
		ctx.StopWithJSON(http.StatusInternalServerError, iris.Map{"error": "server_error"})
		return
	}

	utils.Audit(ctx, "category.delete", "category", category.ID, before, nil)

	ctx.JSON(iris.Map{"data": iris.Map{"deleted": true}})
}
