package routes

import (
	"encoding/json"
	"net/http"
	"strings"

	"marketplace-server/models"
	"marketplace-server/storage"
	"marketplace-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/datatypes"
)

type ProductInput struct {
	Title       string   `json:"title" validate:"required,max=256"`
	Description string   `json:"description" validate:"required"`
	Price       float64  `json:"price" validate:"gte=0"`
	CategoryID  *uint    `json:"categoryID"`
	Images      []string `json:"images"` // URLs from a prior upload, cover first
	Video       string   `json:"video"`
}

// CreateProduct lists a new item. It starts pending and only appears in the
// public catalog after admin approval.
func CreateProduct(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input ProductInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	product := models.Product{
		OwnerID:     claims.ID,
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price,
		Status:      models.ProductStatusPending,
		CategoryID:  input.CategoryID,
		Video:       input.Video,
		Images:      encodeImages(input.Images),
	}

	if err := storage.DB.Create(&product).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(product)
}

// GetProducts is the public catalog: available items only, with search,
// category filter and pagination.
func GetProducts(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	if page < 1 {
		page = 1
	}
	limit := ctx.URLParamIntDefault("limit", 10)
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	query := storage.DB.Model(&models.Product{}).
		Where("status = ?", models.ProductStatusAvailable)

	if search := strings.TrimSpace(ctx.URLParamDefault("search", "")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("lower(title) LIKE ? OR lower(description) LIKE ?", like, like)
	}
	if category := ctx.URLParamIntDefault("category", 0); category > 0 {
		query = query.Where("category_id = ?", category)
	}

	var total int64
	query.Count(&total)

	var products []models.Product
	err := query.
		Preload("Owner").
		Preload("Category").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, products, page, limit, total)
}

// GetProduct returns a single listing with owner and category.
func GetProduct(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(http.StatusBadRequest)
		return
	}

	var product models.Product
	if err := storage.DB.
		Preload("Owner").
		Preload("Category").
		First(&product, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(product)
}

// GetMyProducts lists the authenticated user's own items regardless of status.
func GetMyProducts(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var products []models.Product
	storage.DB.
		Where("owner_id = ?", claims.ID).
		Preload("Category").
		Order("created_at DESC").
		Find(&products)
	ctx.JSON(products)
}

// UpdateProduct edits a listing; owner or admin only. Edits drop the item
// back to pending review.
func UpdateProduct(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(http.StatusBadRequest)
		return
	}

	var product models.Product
	if err := storage.DB.First(&product, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if product.OwnerID != claims.ID && claims.Role != "ADMIN" {
		utils.CreateError(iris.StatusUnauthorized, "Authorization Error", "User not authorized.", ctx)
		return
	}

	var input ProductInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	product.Title = input.Title
	product.Description = input.Description
	product.Price = input.Price
	product.CategoryID = input.CategoryID
	product.Video = input.Video
	product.Images = encodeImages(input.Images)
	product.Status = models.ProductStatusPending

	if err := storage.DB.Save(&product).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(product)
}

// DeleteProduct removes a listing; owner or admin only. Chat messages that
// referenced it keep their place with the product reference cleared.
func DeleteProduct(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(http.StatusBadRequest)
		return
	}

	var product models.Product
	if err := storage.DB.First(&product, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if product.OwnerID != claims.ID && claims.Role != "ADMIN" {
		utils.CreateError(iris.StatusUnauthorized, "Authorization Error", "User not authorized.", ctx)
		return
	}

	clearProductReferences(product.ID)
	if err := storage.DB.Delete(&product).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"message": "Product deleted"})
}

// clearProductReferences nulls the product link on messages that embedded
// this listing. The messages themselves survive.
func clearProductReferences(productID uint) {
	storage.DB.Model(&models.Message{}).
		Where("product_id = ?", productID).
		Update("product_id", nil)
}

func encodeImages(urls []string) datatypes.JSON {
	if len(urls) == 0 {
		return nil
	}
	raw, err := json.Marshal(urls)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
