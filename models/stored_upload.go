package models

import "time"

// StoredUpload ledgers every attachment written to the storage root so the
// orphan cleaner can reclaim files whose cart session lapsed without checkout.
// Claimed rows belong to a placed order and are never reclaimed.
type StoredUpload struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FileName  string    `gorm:"size:512;index;not null" json:"file_name"`
	FilePath  string    `gorm:"size:1024;not null" json:"file_path"`
	URL       string    `gorm:"size:1024;not null" json:"url"`
	SessionID string    `gorm:"size:64;index" json:"session_id"`
	Claimed   bool      `gorm:"index;not null;default:false" json:"claimed"`
	ExpireAt  time.Time `gorm:"index" json:"expire_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
