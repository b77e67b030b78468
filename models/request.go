package models

import "strings"

// RankingsRequest is the query for GET /api/v1/rankings.
type RankingsRequest struct {
	// ItemID is the product identifier on the target site (e.g. J0000037910). Required.
	ItemID string `form:"itemId" binding:"required"`
}

// Normalize trims surrounding whitespace from the identifier.
func (r *RankingsRequest) Normalize() {
	r.ItemID = strings.TrimSpace(r.ItemID)
}
