package domain

import "time"

// User is a chat participant known to the ledger. Balance is the points
// currency every premium action debits and every reward credits.
type User struct {
	ID        int64     `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"first_name"`
	Username  string    `db:"username" json:"username"`
	Balance   int64     `db:"balance" json:"balance"`
	LastBonus int64     `db:"last_bonus" json:"lastBonus"` // epoch millis, 0 = never claimed
	CreatedAt time.Time `db:"created_at" json:"-"`
}
