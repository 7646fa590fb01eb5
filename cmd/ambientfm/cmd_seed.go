/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/friendsincode/ambientfm/internal/models"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load tenants, tracks, playlists, and schedules from a YAML file",
	Long:  "Import a fixture file describing tenants with their track library, playlists, and schedule rules. Existing records with the same IDs are updated.",
	RunE:  runSeed,
}

var (
	seedFile   string
	seedDryRun bool
)

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&seedFile, "file", "", "Path to the seed YAML file (required)")
	seedCmd.Flags().BoolVar(&seedDryRun, "dry-run", false, "Parse and report without writing")
	seedCmd.MarkFlagRequired("file")
}

// seedDocument mirrors the fixture file layout.
type seedDocument struct {
	Tenants []seedTenant `yaml:"tenants"`
}

type seedTenant struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Timezone  string         `yaml:"timezone"`
	Tracks    []seedTrack    `yaml:"tracks"`
	Playlists []seedPlaylist `yaml:"playlists"`
	Schedules []seedSchedule `yaml:"schedules"`
}

type seedTrack struct {
	ID         string `yaml:"id"`
	Title      string `yaml:"title"`
	Artist     string `yaml:"artist"`
	StorageKey string `yaml:"storage_key"`
	Shuffle    *bool  `yaml:"shuffle"`
}

type seedPlaylist struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Type        string   `yaml:"type"`
	Tracks      []string `yaml:"tracks"`
}

type seedSchedule struct {
	ID           string  `yaml:"id"`
	Playlist     string  `yaml:"playlist"`
	StartTime    string  `yaml:"start_time"`
	EndTime      string  `yaml:"end_time"`
	SpecificDate *string `yaml:"specific_date"`
	DayOfWeek    *int    `yaml:"day_of_week"`
	Repeat       string  `yaml:"repeat"`
	RepeatUntil  *string `yaml:"repeat_until"`
	Priority     int     `yaml:"priority"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	raw, err := os.ReadFile(seedFile)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var doc seedDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	if seedDryRun {
		for _, tenant := range doc.Tenants {
			fmt.Printf("tenant %s: %d tracks, %d playlists, %d schedules\n",
				tenant.Name, len(tenant.Tracks), len(tenant.Playlists), len(tenant.Schedules))
		}
		return nil
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	for _, tenant := range doc.Tenants {
		if err := seedOneTenant(database, tenant); err != nil {
			return fmt.Errorf("seed tenant %s: %w", tenant.Name, err)
		}
		logger.Info().Str("tenant", tenant.Name).Msg("tenant seeded")
	}
	return nil
}

func seedOneTenant(database *gorm.DB, fixture seedTenant) error {
	return database.Transaction(func(tx *gorm.DB) error {
		if fixture.ID == "" {
			fixture.ID = uuid.NewString()
		}
		tenant := models.Tenant{ID: fixture.ID, Name: fixture.Name, Timezone: fixture.Timezone}
		if tenant.Timezone == "" {
			tenant.Timezone = "UTC"
		}
		if err := tx.Save(&tenant).Error; err != nil {
			return err
		}

		for _, t := range fixture.Tracks {
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			shuffle := true
			if t.Shuffle != nil {
				shuffle = *t.Shuffle
			}
			track := models.Track{
				ID:         t.ID,
				TenantID:   tenant.ID,
				Title:      t.Title,
				Artist:     t.Artist,
				StorageKey: t.StorageKey,
				Shuffle:    shuffle,
			}
			if err := tx.Save(&track).Error; err != nil {
				return err
			}
		}

		for _, p := range fixture.Playlists {
			if p.ID == "" {
				p.ID = uuid.NewString()
			}
			playlistType := models.PlaylistOrdered
			if p.Type == string(models.PlaylistShuffle) {
				playlistType = models.PlaylistShuffle
			}
			playlist := models.Playlist{
				ID:          p.ID,
				TenantID:    tenant.ID,
				Name:        p.Name,
				Description: p.Description,
				Type:        playlistType,
			}
			if err := tx.Save(&playlist).Error; err != nil {
				return err
			}
			if err := tx.Where("playlist_id = ?", playlist.ID).Delete(&models.PlaylistTrack{}).Error; err != nil {
				return err
			}
			for position, trackID := range p.Tracks {
				membership := models.PlaylistTrack{
					PlaylistID: playlist.ID,
					TrackID:    trackID,
					Position:   position,
				}
				if err := tx.Create(&membership).Error; err != nil {
					return err
				}
			}
		}

		for _, s := range fixture.Schedules {
			schedule, err := buildSchedule(tenant.ID, s)
			if err != nil {
				return err
			}
			if err := tx.Save(schedule).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func buildSchedule(tenantID string, fixture seedSchedule) (*models.Schedule, error) {
	if fixture.ID == "" {
		fixture.ID = uuid.NewString()
	}

	repeat := models.RepeatType(fixture.Repeat)
	switch repeat {
	case models.RepeatOnce, models.RepeatDaily, models.RepeatWeekly, models.RepeatMonthly:
	case "":
		repeat = models.RepeatDaily
	default:
		return nil, fmt.Errorf("schedule %s: unknown repeat %q", fixture.ID, fixture.Repeat)
	}

	schedule := &models.Schedule{
		ID:         fixture.ID,
		TenantID:   tenantID,
		PlaylistID: fixture.Playlist,
		StartTime:  fixture.StartTime,
		EndTime:    fixture.EndTime,
		DayOfWeek:  fixture.DayOfWeek,
		RepeatType: repeat,
		Priority:   fixture.Priority,
		Active:     true,
	}

	if fixture.SpecificDate != nil {
		date, err := time.Parse("2006-01-02", *fixture.SpecificDate)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: invalid specific_date: %w", fixture.ID, err)
		}
		schedule.SpecificDate = &date
	}
	if fixture.RepeatUntil != nil {
		until, err := time.Parse("2006-01-02", *fixture.RepeatUntil)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: invalid repeat_until: %w", fixture.ID, err)
		}
		schedule.RepeatUntil = &until
	}

	return schedule, nil
}
