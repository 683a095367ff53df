package models

import (
	"time"
)

// User represents a user in the system
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Password  string    `db:"password" json:"-"` // Password hash, not returned in JSON
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Transaction represents a single ledger entry. Amount is in minor
// currency units (cents); positive is income, negative is expense.
// Transactions are immutable after creation, the only mutation is deletion.
type Transaction struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"userId"`
	Amount      int64     `db:"amount" json:"amount"`
	Category    string    `db:"category" json:"category"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Summary is derived from a user's current transaction set, never stored.
// Expense keeps its negative sign, so Balance = Income + Expense.
type Summary struct {
	Income  int64 `db:"income" json:"income"`
	Expense int64 `db:"expense" json:"expense"`
	Balance int64 `db:"balance" json:"balance"`
}

// RateLimitRecord is a per-key counter for one fixed admission window
type RateLimitRecord struct {
	Key         string    `db:"key" json:"key"`
	WindowStart time.Time `db:"window_start" json:"windowStart"`
	Count       int64     `db:"count" json:"count"`
}
