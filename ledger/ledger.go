// Package ledger is the balance store: lazily created balance rows,
// deposits, withdrawals, compensated transfers and the ranked top
// listing. Money is never created or destroyed by a transfer.
package ledger

import (
	"log"
	"strconv"
	"time"

	"github.com/emberforge/embercore"
	"github.com/emberforge/embercore/storage/sqldb"
	"github.com/emberforge/embercore/structs"
	"github.com/google/uuid"
)

// Config is the currency part of the add-on configuration. Formatting
// options have no bearing on stored precision.
type Config struct {
	DefaultBalance structs.Amount
	Symbol         string
	SymbolSuffix   bool
	SymbolSpace    bool
	DecimalPlaces  int
	ThousandsSep   string
}

// Store is the slice of the sqldb harness the ledger issues statements
// through.
type Store interface {
	Query(query string, cb func(sqldb.Row) bool, params ...any)
	QueryScalar(query string, params ...any) (string, bool)
	Update(query string, params ...any) int64
}

type Ledger struct {
	store Store
	cfg   Config
	locks *embercore.Locks[string]
}

func New(store Store, cfg Config) *Ledger {
	return &Ledger{
		store: store,
		cfg:   cfg,
		locks: embercore.NewLocks[string](),
	}
}

// ensureRow creates the balance row with the configured default if it
// does not exist yet. The upsert keeps concurrent first access from
// racing a read-then-write.
func (l *Ledger) ensureRow(id uuid.UUID) {
	ts := time.Now().UnixNano()
	l.store.Update(
		`INSERT INTO balances (uuid, name, balance, created_at, updated_at) VALUES (?, '', ?, ?, ?)
			ON CONFLICT(uuid) DO NOTHING`,
		id.String(), int64(l.cfg.DefaultBalance), ts, ts)
}

func (l *Ledger) balance(id uuid.UUID) structs.Amount {
	l.ensureRow(id)
	raw, found := l.store.QueryScalar(`SELECT balance FROM balances WHERE uuid = ?`, id.String())
	if !found {
		// Store unavailable; degrade to the default rather than
		// invent a zero balance.
		return l.cfg.DefaultBalance
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("parsing stored balance %q for %v: %v", raw, id, err)
		return l.cfg.DefaultBalance
	}
	return structs.Amount(value)
}

// GetBalance returns the account's balance, creating the row with the
// configured default on first access.
func (l *Ledger) GetBalance(id uuid.UUID) structs.Amount {
	l.locks.Lock(id.String())
	defer l.locks.Unlock(id.String())
	return l.balance(id)
}

// SetBalance overwrites the balance. Negative amounts are rejected.
func (l *Ledger) SetBalance(id uuid.UUID, amount structs.Amount) bool {
	if amount < 0 {
		return false
	}
	l.locks.Lock(id.String())
	defer l.locks.Unlock(id.String())
	ts := time.Now().UnixNano()
	return l.store.Update(
		`INSERT INTO balances (uuid, name, balance, created_at, updated_at) VALUES (?, '', ?, ?, ?)
			ON CONFLICT(uuid) DO UPDATE SET balance = excluded.balance, updated_at = excluded.updated_at`,
		id.String(), int64(amount), ts, ts) > 0
}

// Reset returns the account to the configured default balance. Balance
// rows are never deleted.
func (l *Ledger) Reset(id uuid.UUID) bool {
	return l.SetBalance(id, l.cfg.DefaultBalance)
}

// Deposit adds to the balance. Non-positive amounts are rejected.
func (l *Ledger) Deposit(id uuid.UUID, amount structs.Amount) bool {
	if amount <= 0 {
		return false
	}
	l.locks.Lock(id.String())
	defer l.locks.Unlock(id.String())
	return l.deposit(id, amount)
}

func (l *Ledger) deposit(id uuid.UUID, amount structs.Amount) bool {
	l.ensureRow(id)
	return l.store.Update(
		`UPDATE balances SET balance = balance + ?, updated_at = ? WHERE uuid = ?`,
		int64(amount), time.Now().UnixNano(), id.String()) > 0
}

// Withdraw subtracts from the balance. Fails without mutation when the
// amount is non-positive or exceeds the current balance.
func (l *Ledger) Withdraw(id uuid.UUID, amount structs.Amount) bool {
	if amount <= 0 {
		return false
	}
	l.locks.Lock(id.String())
	defer l.locks.Unlock(id.String())
	return l.withdraw(id, amount)
}

func (l *Ledger) withdraw(id uuid.UUID, amount structs.Amount) bool {
	l.ensureRow(id)
	// The balance condition repeats in SQL so a stale read can never
	// drive the row negative.
	return l.store.Update(
		`UPDATE balances SET balance = balance - ?, updated_at = ? WHERE uuid = ? AND balance >= ?`,
		int64(amount), time.Now().UnixNano(), id.String(), int64(amount)) > 0
}

// Transfer moves amount from one account to the other: withdraw, then
// deposit, compensating the sender when the deposit half fails. Both
// accounts are locked in a deterministic order for the duration, so
// opposing concurrent transfers cannot interleave mid-compensation.
// Self-transfer validation belongs to the caller.
func (l *Ledger) Transfer(from uuid.UUID, to uuid.UUID, amount structs.Amount) bool {
	if amount <= 0 {
		return false
	}
	fromKey, toKey := from.String(), to.String()
	first, second := fromKey, toKey
	if second < first {
		first, second = second, first
	}
	l.locks.Lock(first)
	defer l.locks.Unlock(first)
	if second != first {
		l.locks.Lock(second)
		defer l.locks.Unlock(second)
	}

	if !l.withdraw(from, amount) {
		return false
	}
	if !l.deposit(to, amount) {
		// Best effort compensation; not atomic under a crash right
		// here, which the single embedded store makes tolerable.
		if !l.deposit(from, amount) {
			log.Printf("compensation failed: %v still owes %v to %v", to, amount, from)
		}
		return false
	}
	return true
}

// SetName refreshes the display name mirrored on the balance row, used
// by the ranked listing.
func (l *Ledger) SetName(id uuid.UUID, name string) bool {
	l.locks.Lock(id.String())
	defer l.locks.Unlock(id.String())
	l.ensureRow(id)
	return l.store.Update(
		`UPDATE balances SET name = ?, updated_at = ? WHERE uuid = ?`,
		name, time.Now().UnixNano(), id.String()) > 0
}

// TopBalances returns at most limit entries, richest first. A
// non-positive limit returns nothing; SQLite would read LIMIT -1 as
// unlimited.
func (l *Ledger) TopBalances(limit int) []structs.BalanceEntry {
	if limit <= 0 {
		return nil
	}
	var result []structs.BalanceEntry
	l.store.Query(
		`SELECT uuid, name, balance FROM balances ORDER BY balance DESC LIMIT ?`,
		func(row sqldb.Row) bool {
			id, err := uuid.Parse(rowString(row, "uuid"))
			if err != nil {
				return true
			}
			result = append(result, structs.BalanceEntry{
				ID:     id,
				Name:   rowString(row, "name"),
				Amount: structs.Amount(rowInt64(row, "balance")),
			})
			return true
		}, limit)
	return result
}

func rowString(row sqldb.Row, col string) string {
	switch v := row[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

func rowInt64(row sqldb.Row, col string) int64 {
	if v, ok := row[col].(int64); ok {
		return v
	}
	return 0
}
