package domain

// MaxCategoryNameLength mirrors the category name column width.
const MaxCategoryNameLength = 100

// Category is a user-owned label; names are unique per user.
type Category struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"-"`
	Name   string `json:"name"`
}
