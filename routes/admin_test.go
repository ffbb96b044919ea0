package routes

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"marketplace-server/models"
	"marketplace-server/storage"
	"marketplace-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Address{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.MessageDeletion{},
		&models.AuditLog{},
	)
	if err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	storage.DB = db
}

// buildAdminTestApp creates a minimal Iris app with the admin routes behind
// the real verifier and role middleware.
func buildAdminTestApp() *iris.Application {
	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")
	app := iris.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} { return new(utils.AccessToken) })

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
	{
		admin.Get("/users", AdminListUsers)
		admin.Get("/products/pending", AdminListPendingProducts)
		admin.Post("/products/{id:uint}/approve", AdminApproveProduct)
		admin.Get("/activity", AdminActivity)
	}
	return app
}

// signTestToken returns a signed JWT with the given role
func signTestToken(id uint, role string) string {
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), 0)
	token, _ := signer.Sign(utils.AccessToken{ID: id, Role: role})
	return string(token)
}

func TestAdminUsersRBAC(t *testing.T) {
	setupTestDB(t)
	app := buildAdminTestApp()
	if err := app.Build(); err != nil {
		t.Fatalf("building app: %v", err)
	}

	// No token -> rejected by the verifier
	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code == http.StatusOK {
		t.Fatalf("expected non-200 without token, got %d", resp.Code)
	}

	// USER role -> 403
	req2 := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req2.Header.Set("Authorization", "Bearer "+signTestToken(1, "USER"))
	resp2 := httptest.NewRecorder()
	app.ServeHTTP(resp2, req2)
	if resp2.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for USER role, got %d", resp2.Code)
	}

	// ADMIN role -> 200 (empty list OK)
	req3 := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req3.Header.Set("Authorization", "Bearer "+signTestToken(1, "ADMIN"))
	resp3 := httptest.NewRecorder()
	app.ServeHTTP(resp3, req3)
	if resp3.Code != http.StatusOK {
		t.Fatalf("expected 200 for ADMIN role, got %d", resp3.Code)
	}
}

func TestAdminApproveProduct(t *testing.T) {
	setupTestDB(t)
	app := buildAdminTestApp()
	if err := app.Build(); err != nil {
		t.Fatalf("building app: %v", err)
	}

	owner := models.User{Name: "Seller", Email: "seller@example.com", Password: "x"}
	storage.DB.Create(&owner)
	product := models.Product{OwnerID: owner.ID, Title: "Bike", Description: "red", Status: models.ProductStatusPending}
	storage.DB.Create(&product)

	url := fmt.Sprintf("/api/admin/products/%d/approve", product.ID)
	req := httptest.NewRequest(http.MethodPost, url, nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(99, "ADMIN"))
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var reloaded models.Product
	storage.DB.First(&reloaded, product.ID)
	if reloaded.Status != models.ProductStatusAvailable {
		t.Fatalf("expected status %q, got %q", models.ProductStatusAvailable, reloaded.Status)
	}

	var entry models.AuditLog
	if err := storage.DB.Where("action = ?", "product.approve").First(&entry).Error; err != nil {
		t.Fatalf("expected an audit row: %v", err)
	}
	if entry.AdminUserID != 99 || entry.ResourceType != "product" || entry.ResourceID != product.ID {
		t.Fatalf("audit row misses actor or resource: %+v", entry)
	}
	if entry.BeforeJSON == "" || entry.AfterJSON == "" {
		t.Fatal("audit row misses before/after snapshots")
	}

	// The activity feed surfaces the entry.
	req2 := httptest.NewRequest(http.MethodGet, "/api/admin/activity", nil)
	req2.Header.Set("Authorization", "Bearer "+signTestToken(99, "ADMIN"))
	resp2 := httptest.NewRecorder()
	app.ServeHTTP(resp2, req2)
	if resp2.Code != http.StatusOK {
		t.Fatalf("expected 200 from activity feed, got %d", resp2.Code)
	}
	if !strings.Contains(resp2.Body.String(), "product.approve") {
		t.Fatalf("activity feed misses the audit entry: %s", resp2.Body.String())
	}
}
