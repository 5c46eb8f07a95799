package models

// Stats holds the aggregate numbers shown on the admin dashboard.
// Computed is true when some field had to be derived from fetched collections.
type Stats struct {
	TotalUsers        int            `json:"totalUsers"`
	TotalListings     int            `json:"totalListings"`
	ByLocation        map[string]int `json:"byLocation,omitempty"`
	WeeklyNewUsers    *int           `json:"weeklyNewUsers,omitempty"`
	WeeklyNewListings *int           `json:"weeklyNewListings,omitempty"`
	Computed          bool           `json:"-"`
}
