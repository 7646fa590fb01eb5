package auth

import (
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/ambientfm/internal/models"
)

func setupKeyDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.APIKey{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestAPIKeyRoundtrip(t *testing.T) {
	db := setupKeyDB(t)

	plaintext, record, err := GenerateAPIKey("ci", "t1", time.Hour)
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("store key: %v", err)
	}

	claims, err := ValidateAPIKey(db, plaintext)
	if err != nil {
		t.Fatalf("ValidateAPIKey: %v", err)
	}
	if claims.TenantID != "t1" {
		t.Fatalf("tenant = %q, want t1", claims.TenantID)
	}
}

func TestAPIKeyUnknown(t *testing.T) {
	db := setupKeyDB(t)

	if _, err := ValidateAPIKey(db, "am_does_not_exist"); !errors.Is(err, ErrAPIKeyNotFound) {
		t.Fatalf("err = %v, want ErrAPIKeyNotFound", err)
	}
}

func TestAPIKeyExpired(t *testing.T) {
	db := setupKeyDB(t)

	plaintext, record, err := GenerateAPIKey("old", "", time.Hour)
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	record.ExpiresAt = time.Now().Add(-time.Minute)
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("store key: %v", err)
	}

	if _, err := ValidateAPIKey(db, plaintext); !errors.Is(err, ErrAPIKeyExpired) {
		t.Fatalf("err = %v, want ErrAPIKeyExpired", err)
	}
}

func TestAPIKeyNoExpiry(t *testing.T) {
	db := setupKeyDB(t)

	plaintext, record, err := GenerateAPIKey("forever", "", 0)
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("store key: %v", err)
	}

	if _, err := ValidateAPIKey(db, plaintext); err != nil {
		t.Fatalf("ValidateAPIKey: %v", err)
	}
}

func TestAPIKeyRevoked(t *testing.T) {
	db := setupKeyDB(t)

	plaintext, record, err := GenerateAPIKey("leaked", "", time.Hour)
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("store key: %v", err)
	}
	if err := RevokeAPIKey(db, record.ID); err != nil {
		t.Fatalf("RevokeAPIKey: %v", err)
	}

	if _, err := ValidateAPIKey(db, plaintext); !errors.Is(err, ErrAPIKeyRevoked) {
		t.Fatalf("err = %v, want ErrAPIKeyRevoked", err)
	}
}
