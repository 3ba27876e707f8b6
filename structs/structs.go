package structs

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Timestamp uint64

func Stamp(t time.Time) Timestamp {
	return Timestamp(t.UnixNano())
}

func (t Timestamp) Time() time.Time {
	return time.Unix(0, int64(t))
}

// AmountScale is the number of minor units per whole currency unit.
// Balances are stored as exact integer minor units, never floats.
const AmountScale = 100

// Amount is a currency amount in minor units.
type Amount int64

// ParseAmount parses a decimal string like "100", "100.5" or "100.50"
// into minor units. More fractional digits than the scale allows is an
// error rather than a silent rounding.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if whole == "" {
		whole = "0"
	}
	result := Amount(0)
	for _, r := range whole {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("bad amount %q", s)
		}
		result = result*10 + Amount(r-'0')
	}
	result *= AmountScale
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than 2 decimals", s)
	}
	scale := Amount(AmountScale / 10)
	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("bad amount %q", s)
		}
		result += Amount(r-'0') * scale
		scale /= 10
	}
	if neg {
		result = -result
	}
	return result, nil
}

// String renders the amount as a plain decimal with full stored
// precision. Configured currency formatting lives in the ledger package.
func (a Amount) String() string {
	sign := ""
	if a < 0 {
		sign = "-"
		a = -a
	}
	return fmt.Sprintf("%s%d.%02d", sign, a/AmountScale, a%AmountScale)
}

// BalanceEntry is a read-only ranked projection of a balance row.
type BalanceEntry struct {
	ID     uuid.UUID
	Name   string
	Amount Amount
}

// LocationSnapshot mirrors the last known position of an account.
// Overwritten wholesale on every save.
type LocationSnapshot struct {
	World string
	X     float64
	Y     float64
	Z     float64
	Yaw   float32
	Pitch float32
}

// FlightState mirrors the last known flight flags of an account.
type FlightState struct {
	CanFly bool
	Flying bool
	Speed  float32
}

// GamemodeState mirrors the last known game mode of an account.
type GamemodeState struct {
	Mode int32
}

type MailMessage struct {
	ID        int64
	Sender    uuid.UUID
	Recipient uuid.UUID
	Body      string
	SentAt    time.Time
	Read      bool
}

type Gift struct {
	ID        int64
	Sender    uuid.UUID
	Recipient uuid.UUID
	Items     ItemStacks
	SentAt    time.Time
	Claimed   bool
}

// ItemStack is an opaque composite game object as far as persistence is
// concerned: the ledger and stores never interpret its fields.
type ItemStack struct {
	Material     string
	Count        int32
	Durability   int32
	DisplayName  string
	Lore         []string
	Enchantments map[string]int32
}

// ItemStacks preserves exact arity including nil elements, so a slice
// with holes round-trips losslessly through the blob codec.
type ItemStacks []*ItemStack

// InventorySnapshot groups the per-slot-group stacks of one account.
// Each group is persisted as its own encoded blob column; a nil group is
// stored as NULL, which is distinct from an empty one.
type InventorySnapshot struct {
	Main       ItemStacks
	Armor      ItemStacks
	Extra      ItemStacks
	EnderChest ItemStacks
	Offhand    ItemStacks
	Cursor     ItemStacks
}
