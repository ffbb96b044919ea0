package routes

import (
	"marketplace-server/models"
	"marketplace-server/storage"
	"marketplace-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

type AddressInput struct {
	FullName     string `json:"fullName" validate:"required,max=256"`
	PhoneNumber  string `json:"phoneNumber" validate:"required,max=32"`
	AddressLine1 string `json:"addressLine1" validate:"required,max=512"`
	AddressLine2 string `json:"addressLine2" validate:"max=512"`
	Subdistrict  string `json:"subdistrict" validate:"max=128"`
	District     string `json:"district" validate:"max=128"`
	Province     string `json:"province" validate:"max=128"`
	ZipCode      string `json:"zipCode" validate:"max=16"`
	IsDefault    bool   `json:"isDefault"`
}

// GetAddresses lists the caller's addresses, default first.
func GetAddresses(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var addresses []models.Address
	storage.DB.
		Where("user_id = ?", claims.ID).
		Order("is_default DESC, created_at DESC").
		Find(&addresses)
	ctx.JSON(addresses)
}

func GetAddress(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	address, ok := loadOwnAddress(ctx, claims.ID)
	if !ok {
		return
	}
	ctx.JSON(address)
}

// CreateAddress adds a shipping address. The user's first address becomes the
// default automatically; marking a later one default clears the old flag.
func CreateAddress(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input AddressInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var count int64
	storage.DB.Model(&models.Address{}).Where("user_id = ?", claims.ID).Count(&count)

	address := models.Address{
		UserID:       claims.ID,
		FullName:     input.FullName,
		PhoneNumber:  input.PhoneNumber,
		AddressLine1: input.AddressLine1,
		AddressLine2: input.AddressLine2,
		Subdistrict:  input.Subdistrict,
		District:     input.District,
		Province:     input.Province,
		ZipCode:      input.ZipCode,
		IsDefault:    input.IsDefault || count == 0,
	}

	if address.IsDefault {
		unsetDefaultAddress(claims.ID)
	}
	if err := storage.DB.Create(&address).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(address)
}

func UpdateAddress(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	address, ok := loadOwnAddress(ctx, claims.ID)
	if !ok {
		return
	}

	var input AddressInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	address.FullName = input.FullName
	address.PhoneNumber = input.PhoneNumber
	address.AddressLine1 = input.AddressLine1
	address.AddressLine2 = input.AddressLine2
	address.Subdistrict = input.Subdistrict
	address.District = input.District
	address.Province = input.Province
	address.ZipCode = input.ZipCode

	if input.IsDefault && !address.IsDefault {
		unsetDefaultAddress(claims.ID)
		address.IsDefault = true
	}

	if err := storage.DB.Save(address).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(address)
}

func DeleteAddress(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	address, ok := loadOwnAddress(ctx, claims.ID)
	if !ok {
		return
	}

	if err := storage.DB.Delete(address).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"message": "Address deleted"})
}

// loadOwnAddress resolves the {id} path param scoped to the caller. Another
// user's address id reads as not found, never as forbidden.
func loadOwnAddress(ctx iris.Context, userID uint) (*models.Address, bool) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(iris.StatusBadRequest)
		return nil, false
	}

	var address models.Address
	if err := storage.DB.
		Where("id = ? AND user_id = ?", id, userID).
		First(&address).Error; err != nil {
		utils.CreateNotFound(ctx)
		return nil, false
	}
	return &address, true
}

func unsetDefaultAddress(userID uint) {
	storage.DB.Model(&models.Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false)
}
