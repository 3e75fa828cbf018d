package domain

import "time"

// DefaultTheme is applied to profiles created without an explicit theme.
const DefaultTheme = "dark"

// ProfileWindowDays is the length of the trailing date window applied on
// the first login of each day.
const ProfileWindowDays = 30

// UserProfile holds per-user dashboard preferences.
type UserProfile struct {
	UserID             int64      `json:"-"`
	Theme              string     `json:"theme"`
	StartDate          Date       `json:"start_date"`
	EndDate            Date       `json:"end_date"`
	FilteredCategories []string   `json:"filtered_categories"`
	LastLogin          *time.Time `json:"last_login"`
}

// NeedsWindowReset reports whether a login at now is the first of its
// calendar day (in now's location).
func (p *UserProfile) NeedsWindowReset(now time.Time) bool {
	if p.LastLogin == nil {
		return true
	}
	ly, lm, ld := p.LastLogin.In(now.Location()).Date()
	ny, nm, nd := now.Date()
	return ly != ny || lm != nm || ld != nd
}

// ResetWindow sets the date window to the trailing ProfileWindowDays ending today.
func (p *UserProfile) ResetWindow(now time.Time) {
	today := NewDate(now)
	p.EndDate = today
	p.StartDate = today.AddDays(-ProfileWindowDays)
}
