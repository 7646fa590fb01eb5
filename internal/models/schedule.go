/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// RepeatType defines how a schedule window recurs.
type RepeatType string

const (
	RepeatOnce    RepeatType = "once"
	RepeatDaily   RepeatType = "daily"
	RepeatWeekly  RepeatType = "weekly"
	RepeatMonthly RepeatType = "monthly"
)

// Schedule binds a playlist to a recurring or one-off time window. Exactly
// one of SpecificDate and DayOfWeek governs recurrence; with neither set the
// window applies every day.
type Schedule struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	TenantID   string `gorm:"type:uuid;index:idx_schedules_tenant;not null"`
	PlaylistID string `gorm:"type:uuid;not null"`

	// StartTime and EndTime are times of day in "HH:MM" form, minute
	// granularity. A window whose end precedes its start wraps midnight.
	StartTime string `gorm:"type:varchar(5);not null"`
	EndTime   string `gorm:"type:varchar(5);not null"`

	SpecificDate *time.Time `gorm:"type:date"`
	DayOfWeek    *int       // 0 = Sunday
	RepeatType   RepeatType `gorm:"type:varchar(16);not null;default:'once'"`
	RepeatUntil  *time.Time `gorm:"type:date"`

	// Priority breaks ties between simultaneously active schedules; higher
	// wins. CreatedAt is the secondary tie-break (most recent wins).
	Priority int  `gorm:"not null;default:0"`
	Active   bool `gorm:"not null;default:true"`

	Playlist *Playlist `gorm:"foreignKey:PlaylistID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (Schedule) TableName() string {
	return "schedules"
}
