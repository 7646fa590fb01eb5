/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// APIKey is a hashed control-plane credential. The plaintext key is shown
// once at creation and only the SHA-256 hash is stored.
type APIKey struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"type:varchar(255);not null"`
	TenantID  string `gorm:"type:uuid;index"` // empty = all tenants
	KeyHash   string `gorm:"type:varchar(64);uniqueIndex;not null"`
	KeyPrefix string `gorm:"type:varchar(16);not null"` // for display, e.g. "am_a1b2c3d4"

	ExpiresAt  time.Time
	LastUsedAt *time.Time
	RevokedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (APIKey) TableName() string {
	return "api_keys"
}

// IsExpired reports whether the key is past its expiry.
func (k *APIKey) IsExpired() bool {
	return !k.ExpiresAt.IsZero() && time.Now().After(k.ExpiresAt)
}

// IsRevoked reports whether the key has been revoked.
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}
