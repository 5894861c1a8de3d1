package model

import (
	"strings"
	"time"
)

// LocalIDPrefix namespaces ids minted on the client. Service ids are UUIDs,
// so the two never collide.
const LocalIDPrefix = "local-"

const UnknownDate = "Unknown date"

type Notebook struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	IconRef     string    `json:"icon_ref"`
	CreatedAt   time.Time `json:"created_at"`
	DisplayDate string    `json:"display_date"`
	SourceCount int       `json:"source_count"`
	Local       bool      `json:"local"`
}

func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}
