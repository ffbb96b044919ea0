package routes

import (
	"net/http"
	"strings"

	"marketplace-server/models"
	"marketplace-server/storage"
	"marketplace-server/utils"

	"github.com/kataras/iris/v12"
)

// AdminListProducts - GET /admin/products?status=&q=&page=&per_page=
func AdminListProducts(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 25)
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}

	query := storage.DB.Model(&models.Product{})
	if status := strings.TrimSpace(ctx.URLParamDefault("status", "")); status != "" {
		query = query.Where("status = ?", status)
	}
	if q := strings.TrimSpace(ctx.URLParamDefault("q", "")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("lower(title) LIKE ?", like)
	}

	var total int64
	query.Count(&total)

	var products []models.Product
	err := query.
		Preload("Owner").
		Preload("Category").
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&products).Error
	if err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	utils.JSONPage(ctx, products, page, perPage, total)
}

// AdminListPendingProducts - GET /admin/products/pending, the review queue
// oldest first.
func AdminListPendingProducts(ctx iris.Context) {
	var products []models.Product
	err := storage.DB.
		Where("status = ?", models.ProductStatusPending).
		Preload("Owner").
		Preload("Category").
		Order("created_at ASC").
		Find(&products).Error
	if err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	ctx.JSON(iris.Map{"data": products, "meta": iris.Map{}, "links": iris.Map{}})
}

// AdminApproveProduct - POST /admin/products/:id/approve
func AdminApproveProduct(ctx iris.Context) {
	setProductStatus(ctx, models.ProductStatusAvailable, "product.approve")
}

// AdminRejectProduct - POST /admin/products/:id/reject
func AdminRejectProduct(ctx iris.Context) {
	setProductStatus(ctx, models.ProductStatusCancelled, "product.reject")
}

func setProductStatus(ctx iris.Context, status, action string) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithJSON(http.StatusBadRequest, iris.Map{"error": "invalid_id"})
		return
	}

	var product models.Product
	if err := storage.DB.First(&product, id).Error; err != nil {
		ctx.StopWithJSON(http.StatusNotFound, iris.Map{"error": "not_found"})
		return
	}

	before := product
	product.Status = status
	if err := storage.DB.Save(&product).Error; err != nil {
		ctx.StopWithJSON(http.StatusInternalServerError, iris.Map{"error": "server_error"})
		return
	}

	utils.Audit(ctx, action, "product", product.ID, before, product)

	ctx.JSON(iris.Map{"data": product})
}
