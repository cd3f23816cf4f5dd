package domain

import "time"

// RedeemCode is a one-time promotional code. Slots counts redemptions still
// available; UsedBy holds the ids of users who already redeemed it.
type RedeemCode struct {
	Code      string    `db:"code" json:"code"`
	Slots     int       `db:"slots" json:"slots"`
	Points    int64     `db:"points" json:"points"`
	UsedBy    []int64   `db:"-" json:"usedBy"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}

// Redeemed reports whether the given user already consumed a slot.
func (c *RedeemCode) Redeemed(userID int64) bool {
	for _, id := range c.UsedBy {
		if id == userID {
			return true
		}
	}
	return false
}
