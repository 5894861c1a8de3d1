package model

import "time"

// Turn is a resolved question/answer pair archived for auditing.
type Turn struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	NotebookID string    `gorm:"size:64;not null;index" json:"notebook_id"`
	Query      string    `gorm:"type:text;not null" json:"query"`
	Answer     string    `gorm:"type:text" json:"answer"`
	Failed     bool      `gorm:"not null;default:false" json:"failed"`
	AskedAt    time.Time `json:"asked_at"`
	ResolvedAt time.Time `json:"resolved_at"`
	CreatedAt  time.Time `json:"created_at"`
}
