package model

// Platform is a supported domino app.
type Platform struct {
	ID         string  `db:"id" json:"id"`
	Name       string  `db:"name" json:"name"`
	WebsiteURL *string `db:"website_url" json:"website_url,omitempty"`
	IsActive   bool    `db:"is_active" json:"is_active"`
	SortOrder  int     `db:"sort_order" json:"sort_order"`
}
