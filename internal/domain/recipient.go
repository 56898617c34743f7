package domain

import "time"

// Recipient is a contact from the church directory that is eligible for
// campaign messages. The campaign engine only reads recipients; the
// registration flow owns them.
type Recipient struct {
	ID           int64      `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Phone        string     `db:"phone" json:"phone"`
	Gender       string     `db:"gender" json:"gender,omitempty"`
	City         string     `db:"city" json:"city,omitempty"`
	BirthDate    *time.Time `db:"birth_date" json:"birthDate,omitempty"`
	RegisteredAt time.Time  `db:"registered_at" json:"registeredAt"`
}

// Age returns the recipient's age in whole years at the given moment,
// or -1 when the birth date is unknown.
func (r *Recipient) Age(at time.Time) int {
	if r.BirthDate == nil {
		return -1
	}
	b := *r.BirthDate
	age := at.Year() - b.Year()
	if at.Month() < b.Month() || (at.Month() == b.Month() && at.Day() < b.Day()) {
		age--
	}
	return age
}

// RecipientFilter holds parsed selection criteria. A nil bound imposes no
// restriction. Out-of-range combinations (e.g. AgeMin > AgeMax) are not an
// error; they simply match nothing.
type RecipientFilter struct {
	DateStart *time.Time
	DateEnd   *time.Time
	AgeMin    *int
	AgeMax    *int
	Gender    string
}

// IsEmpty reports whether no bound is set at all.
func (f *RecipientFilter) IsEmpty() bool {
	return f.DateStart == nil && f.DateEnd == nil &&
		f.AgeMin == nil && f.AgeMax == nil && f.Gender == ""
}
