package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WatchRecord is the persisted accrual state for a (viewer, video) pair.
// It is created lazily on the first watch report and never deleted.
//
// Invariants maintained by the accrual engine:
//   - CumulativeWatchSeconds never decreases.
//   - BasePointsAwarded flips false->true at most once.
//   - BonusPointsAwardedTotal never decreases.
//   - FullyWatched is sticky; once set, no further points accrue.
type WatchRecord struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ViewerID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_viewer_video,priority:1;not null" json:"viewer_id"`
	VideoID  uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_viewer_video,priority:2;not null" json:"video_id"`
	Viewer   User      `gorm:"foreignKey:ViewerID;constraint:OnDelete:CASCADE" json:"-"`
	Video    Video     `gorm:"foreignKey:VideoID;constraint:OnDelete:CASCADE" json:"-"`

	CumulativeWatchSeconds  int  `gorm:"not null;default:0" json:"cumulative_watch_seconds"`
	BasePointsAwarded       bool `gorm:"not null;default:false" json:"base_points_awarded"`
	BonusPointsAwardedTotal int  `gorm:"not null;default:0" json:"bonus_points_awarded_total"`
	FullyWatched            bool `gorm:"not null;default:false" json:"fully_watched"`

	LastReportAt *time.Time `json:"last_report_at,omitempty"`

	// Optimistic concurrency counter; every accepted mutation increments it.
	Version int64 `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (w *WatchRecord) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// PointsAwardedTotal is the full amount ever credited for this pair.
func (w *WatchRecord) PointsAwardedTotal(pointsPerMinute int) int {
	total := w.BonusPointsAwardedTotal
	if w.BasePointsAwarded {
		total += pointsPerMinute
	}
	return total
}

// PointLog is the append-only ledger of point credits and debits.
type PointLog struct {
	ID      uint       `gorm:"primaryKey" json:"id"`
	UserID  uuid.UUID  `gorm:"type:uuid;index:idx_pointlog_user_date,priority:1;not null" json:"user_id"`
	User    User       `gorm:"foreignKey:UserID" json:"-"`
	VideoID *uuid.UUID `gorm:"type:uuid;index" json:"video_id,omitempty"`

	Reason string `gorm:"size:50;not null" json:"reason"` // 'base_reward', 'bonus_reward', 'transfer_in', 'transfer_out'
	Points int    `gorm:"not null" json:"points"`         // negative for debits

	CreatedAt time.Time `gorm:"index:idx_pointlog_user_date,priority:2;autoCreateTime" json:"created_at"`
}

const (
	ReasonBaseReward  = "base_reward"
	ReasonBonusReward = "bonus_reward"
	ReasonTransferIn  = "transfer_in"
	ReasonTransferOut = "transfer_out"
)
