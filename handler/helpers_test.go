package handler

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/s-ciobanu-r/jora-webapp/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:handler_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&model.DraftRecord{}, &model.IdempotencyRecord{}, &model.Buyer{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// asUser wraps a handler so it sees an authenticated caller without going
// through the JWT middleware.
func asUser(userID string, h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("username", userID)
		c.Set("user_id", userID)
		h(c)
	}
}

func validDraft() model.ContractDraft {
	return model.ContractDraft{
		Contract: model.ContractInfo{Number: "KV-2024-001", Date: "2024-06-01"},
		Vehicle: model.VehicleInfo{
			BrandModel: "VW Golf VII",
			VIN:        "WVWZZZ1KZAW123456",
			KM:         125000,
			FirstReg:   "2014-03-15",
		},
		Buyer: model.BuyerInfo{
			FullName:          "Ion Popescu",
			Street:            "Strada Mare",
			Zip:               "400001",
			City:              "Cluj-Napoca",
			Phone:             "+40 740 123 456",
			DocumentNumber:    "RX123456",
			DocumentAuthority: "SPCLEP Cluj",
		},
		Price: 8500,
	}
}
