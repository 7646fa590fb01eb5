package models

import "time"

// Tenant is an isolated venue whose tracks, playlists, and schedules are
// scoped independently.
type Tenant struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"uniqueIndex"`
	Timezone  string `gorm:"type:varchar(32)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Track is one playable audio asset.
type Track struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	TenantID   string `gorm:"type:uuid;index"`
	Title      string `gorm:"index"`
	Artist     string `gorm:"index"`
	StorageKey string
	Duration   time.Duration
	// Shuffle marks the track for inclusion in the tenant-wide default
	// shuffle pool.
	Shuffle   bool `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlaylistType enumerates playlist ordering semantics.
type PlaylistType string

const (
	PlaylistOrdered PlaylistType = "ordered"
	PlaylistShuffle PlaylistType = "shuffle"
)

// Playlist is a named collection of tracks.
type Playlist struct {
	ID          string       `gorm:"type:uuid;primaryKey"`
	TenantID    string       `gorm:"type:uuid;index"`
	Name        string       `gorm:"index"`
	Description string       `gorm:"type:text"`
	Type        PlaylistType `gorm:"type:varchar(16);not null;default:'ordered'"`
	// AutoInclude pulls newly uploaded tracks into the playlist. Only
	// meaningful for shuffle playlists.
	AutoInclude bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PlaylistTrack is the ordered membership relation between playlists and
// tracks. Position is meaningful only for ordered playlists.
type PlaylistTrack struct {
	PlaylistID string `gorm:"type:uuid;primaryKey"`
	TrackID    string `gorm:"type:uuid;primaryKey"`
	Position   int    `gorm:"index"`
}

// TableName returns the table name for GORM.
func (PlaylistTrack) TableName() string {
	return "playlist_tracks"
}
