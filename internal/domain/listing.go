package domain

import "time"

// Listing is the minimal projection of a bookable item this core needs: a
// display name for notification text. The full catalog lives elsewhere.
type Listing struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	ContentType string    `gorm:"type:varchar(20);uniqueIndex:idx_listings_key;not null" json:"content_type"`
	ObjectID    int64     `gorm:"uniqueIndex:idx_listings_key;not null" json:"object_id"`
	Name        string    `gorm:"type:varchar(200);not null" json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Listing) TableName() string { return "listings" }
