package models

import "time"

// User is a storefront account as seen by the back office
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Admin     bool      `json:"admin"`
	Banned    bool      `json:"banned"`
	CreatedAt time.Time `json:"createdAt"`
}

// Principal is the authenticated caller of a request
type Principal struct {
	UserID string
	Email  string
	Name   string
	Admin  bool
	Banned bool
}

// CanAccessOrder reports whether p may read or cancel o.
func (p *Principal) CanAccessOrder(o *Order) bool {
	if p == nil {
		return false
	}
	return p.Admin || o.OwnedBy(p.Email)
}
