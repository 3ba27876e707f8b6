// Package storage is the typed persistence facade: per-account state
// mirrors (location, flight, gamemode), inventory snapshots stored as
// opaque blob columns, and the mail/gift delivery tables. Everything
// goes through the sqldb harness; this package owns the schema.
package storage

import (
	"os"
	"path/filepath"
	"time"

	"github.com/emberforge/embercore"
	"github.com/emberforge/embercore/blob"
	"github.com/emberforge/embercore/storage/sqldb"
	"github.com/emberforge/embercore/structs"
	"github.com/google/uuid"
)

const dbFile = "embercore.db"

// Schema is created if absent, never dropped or migrated destructively.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS balances (
		uuid TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		balance INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS balances_by_amount ON balances (balance DESC)`,
	`CREATE TABLE IF NOT EXISTS inventories (
		uuid TEXT PRIMARY KEY,
		main TEXT,
		armor TEXT,
		extra TEXT,
		enderchest TEXT,
		offhand TEXT,
		cursor TEXT,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS locations (
		uuid TEXT PRIMARY KEY,
		world TEXT NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		z REAL NOT NULL,
		yaw REAL NOT NULL,
		pitch REAL NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS flight (
		uuid TEXT PRIMARY KEY,
		can_fly INTEGER NOT NULL,
		flying INTEGER NOT NULL,
		speed REAL NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS gamemodes (
		uuid TEXT PRIMARY KEY,
		mode INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS mail (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender TEXT NOT NULL,
		recipient TEXT NOT NULL,
		body TEXT NOT NULL,
		sent_at INTEGER NOT NULL,
		is_read INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS mail_by_recipient ON mail (recipient, is_read)`,
	`CREATE TABLE IF NOT EXISTS gifts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender TEXT NOT NULL,
		recipient TEXT NOT NULL,
		payload TEXT,
		sent_at INTEGER NOT NULL,
		claimed INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS gifts_by_recipient ON gifts (recipient, claimed)`,
}

type Storage struct {
	DB *sqldb.DB
}

// Open creates the data directory if needed and connects the store.
// Connectivity failure here is fatal for the subsystem.
func Open(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, embercore.WithStack(err)
	}
	db := sqldb.Open(filepath.Join(dir, dbFile), schema...)
	if err := db.Connect(); err != nil {
		return nil, embercore.WithStack(err)
	}
	return &Storage{DB: db}, nil
}

func (s *Storage) Close() error {
	return embercore.WithStack(s.DB.Close())
}

func now() int64 {
	return int64(structs.Stamp(time.Now()))
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

func rowFloat64(row sqldb.Row, col string) float64 {
	switch v := row[col].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func rowBool(row sqldb.Row, col string) bool {
	return rowInt64(row, col) != 0
}

// SetLocation overwrites the stored location wholesale, last write wins.
func (s *Storage) SetLocation(id uuid.UUID, loc *structs.LocationSnapshot) bool {
	return s.DB.Update(
		`INSERT OR REPLACE INTO locations (uuid, world, x, y, z, yaw, pitch, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), loc.World, loc.X, loc.Y, loc.Z, loc.Yaw, loc.Pitch, now()) > 0
}

// Location returns the mirrored location, or nil when none is stored.
func (s *Storage) Location(id uuid.UUID) *structs.LocationSnapshot {
	row, found := s.DB.QueryRow(`SELECT world, x, y, z, yaw, pitch FROM locations WHERE uuid = ?`, id.String())
	if !found {
		return nil
	}
	return &structs.LocationSnapshot{
		World: rowString(row, "world"),
		X:     rowFloat64(row, "x"),
		Y:     rowFloat64(row, "y"),
		Z:     rowFloat64(row, "z"),
		Yaw:   float32(rowFloat64(row, "yaw")),
		Pitch: float32(rowFloat64(row, "pitch")),
	}
}

func (s *Storage) SetFlight(id uuid.UUID, f *structs.FlightState) bool {
	return s.DB.Update(
		`INSERT OR REPLACE INTO flight (uuid, can_fly, flying, speed, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id.String(), f.CanFly, f.Flying, f.Speed, now()) > 0
}

func (s *Storage) Flight(id uuid.UUID) *structs.FlightState {
	row, found := s.DB.QueryRow(`SELECT can_fly, flying, speed FROM flight WHERE uuid = ?`, id.String())
	if !found {
		return nil
	}
	return &structs.FlightState{
		CanFly: rowBool(row, "can_fly"),
		Flying: rowBool(row, "flying"),
		Speed:  float32(rowFloat64(row, "speed")),
	}
}

func (s *Storage) SetGamemode(id uuid.UUID, g *structs.GamemodeState) bool {
	return s.DB.Update(
		`INSERT OR REPLACE INTO gamemodes (uuid, mode, updated_at) VALUES (?, ?, ?)`,
		id.String(), g.Mode, now()) > 0
}

func (s *Storage) Gamemode(id uuid.UUID) *structs.GamemodeState {
	row, found := s.DB.QueryRow(`SELECT mode FROM gamemodes WHERE uuid = ?`, id.String())
	if !found {
		return nil
	}
	return &structs.GamemodeState{Mode: int32(rowInt64(row, "mode"))}
}

// encodeGroup keeps the nil/empty distinction: a nil group becomes a
// NULL column, an empty one a decodable empty payload.
func encodeGroup(stacks structs.ItemStacks) any {
	if stacks == nil {
		return nil
	}
	return blob.EncodeStacks(stacks)
}

func decodeGroup(row sqldb.Row, col string) structs.ItemStacks {
	if row[col] == nil {
		return nil
	}
	return blob.DecodeStacks(rowString(row, col))
}

// SetInventory overwrites all six blob columns of the account's snapshot.
func (s *Storage) SetInventory(id uuid.UUID, inv *structs.InventorySnapshot) bool {
	return s.DB.Update(
		`INSERT OR REPLACE INTO inventories (uuid, main, armor, extra, enderchest, offhand, cursor, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(),
		encodeGroup(inv.Main),
		encodeGroup(inv.Armor),
		encodeGroup(inv.Extra),
		encodeGroup(inv.EnderChest),
		encodeGroup(inv.Offhand),
		encodeGroup(inv.Cursor),
		now()) > 0
}

// Inventory returns the stored snapshot, or nil when none is stored.
// Corrupt groups degrade to nil groups.
func (s *Storage) Inventory(id uuid.UUID) *structs.InventorySnapshot {
	row, found := s.DB.QueryRow(
		`SELECT main, armor, extra, enderchest, offhand, cursor FROM inventories WHERE uuid = ?`, id.String())
	if !found {
		return nil
	}
	return &structs.InventorySnapshot{
		Main:       decodeGroup(row, "main"),
		Armor:      decodeGroup(row, "armor"),
		Extra:      decodeGroup(row, "extra"),
		EnderChest: decodeGroup(row, "enderchest"),
		Offhand:    decodeGroup(row, "offhand"),
		Cursor:     decodeGroup(row, "cursor"),
	}
}

func (s *Storage) SendMail(sender uuid.UUID, recipient uuid.UUID, body string) bool {
	return s.DB.Update(
		`INSERT INTO mail (sender, recipient, body, sent_at) VALUES (?, ?, ?, ?)`,
		sender.String(), recipient.String(), body, now()) > 0
}

func (s *Storage) UnreadMail(recipient uuid.UUID) []structs.MailMessage {
	var result []structs.MailMessage
	s.DB.Query(
		`SELECT id, sender, recipient, body, sent_at FROM mail WHERE recipient = ? AND is_read = 0 ORDER BY id`,
		func(row sqldb.Row) bool {
			sender, err := uuid.Parse(rowString(row, "sender"))
			if err != nil {
				return true
			}
			result = append(result, structs.MailMessage{
				ID:        rowInt64(row, "id"),
				Sender:    sender,
				Recipient: recipient,
				Body:      rowString(row, "body"),
				SentAt:    structs.Timestamp(rowInt64(row, "sent_at")).Time(),
			})
			return true
		}, recipient.String())
	return result
}

func (s *Storage) MarkMailRead(id int64) bool {
	return s.DB.Update(`UPDATE mail SET is_read = 1 WHERE id = ? AND is_read = 0`, id) > 0
}

func (s *Storage) SendGift(sender uuid.UUID, recipient uuid.UUID, items structs.ItemStacks) bool {
	return s.DB.Update(
		`INSERT INTO gifts (sender, recipient, payload, sent_at) VALUES (?, ?, ?, ?)`,
		sender.String(), recipient.String(), encodeGroup(items), now()) > 0
}

func (s *Storage) UnclaimedGifts(recipient uuid.UUID) []structs.Gift {
	var result []structs.Gift
	s.DB.Query(
		`SELECT id, sender, payload, sent_at FROM gifts WHERE recipient = ? AND claimed = 0 ORDER BY id`,
		func(row sqldb.Row) bool {
			sender, err := uuid.Parse(rowString(row, "sender"))
			if err != nil {
				return true
			}
			result = append(result, structs.Gift{
				ID:        rowInt64(row, "id"),
				Sender:    sender,
				Recipient: recipient,
				Items:     decodeGroup(row, "payload"),
				SentAt:    structs.Timestamp(rowInt64(row, "sent_at")).Time(),
			})
			return true
		}, recipient.String())
	return result
}

// ClaimGift flips the claimed flag and returns the item payload. The
// conditional update makes double claims lose cleanly; a corrupt payload
// degrades to claimed-with-nothing-to-restore.
func (s *Storage) ClaimGift(id int64) (structs.ItemStacks, bool) {
	if s.DB.Update(`UPDATE gifts SET claimed = 1 WHERE id = ? AND claimed = 0`, id) == 0 {
		return nil, false
	}
	row, found := s.DB.QueryRow(`SELECT payload FROM gifts WHERE id = ?`, id)
	if !found {
		return nil, true
	}
	return decodeGroup(row, "payload"), true
}
