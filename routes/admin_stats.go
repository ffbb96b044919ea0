package routes

import (
	"time"

	"marketplace-server/models"
	"marketplace-server/storage"

	"github.com/kataras/iris/v12"
)

// GET /admin/stats
func AdminStats(ctx iris.Context) {
	var pendingProducts int64
	storage.DB.Model(&models.Product{}).Where("status = ?", models.ProductStatusPending).Count(&pendingProducts)
	var availableProducts int64
	storage.DB.Model(&models.Product{}).Where("status = ?", models.ProductStatusAvailable).Count(&availableProducts)
	var totalUsers int64
	storage.DB.Model(&models.User{}).Count(&totalUsers)

	since7 := time.Now().AddDate(0, 0, -7)
	since30 := time.Now().AddDate(0, 0, -30)
	var newUsers7, newUsers30 int64
	storage.DB.Model(&models.User{}).Where("created_at >= ?", since7).Count(&newUsers7)
	storage.DB.Model(&models.User{}).Where("created_at >= ?", since30).Count(&newUsers30)
	var messages7, messages30 int64
	storage.DB.Model(&models.Message{}).Where("created_at >= ?", since7).Count(&messages7)
	storage.DB.Model(&models.Message{}).Where("created_at >= ?", since30).Count(&messages30)

	ctx.JSON(iris.Map{
		"data": iris.Map{
			"pending_products":   pendingProducts,
			"available_products": availableProducts,
			"total_users":        totalUsers,
			"new_users_7d":       newUsers7,
			"new_users_30d":      newUsers30,
			"messages_7d":        messages7,
			"messages_30d":       messages30,
		},
		"meta":  iris.Map{},
		"links": iris.Map{},
	})
}

// GET /admin/activity
func AdminActivity(ctx iris.Context) {
	var logs []models.AuditLog
	storage.DB.Preload("AdminUser").Order("created_at DESC").Limit(100).Find(&logs)
	ctx.JSON(iris.Map{"data": logs, "meta": iris.Map{}, "links": iris.Map{}})
}
