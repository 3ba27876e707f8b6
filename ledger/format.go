package ledger

import (
	"strconv"
	"strings"

	"github.com/emberforge/embercore/structs"
)

// Format renders an amount per the configured currency display rules.
// Pure function of the configuration; rounding here never touches what
// is stored.
func (l *Ledger) Format(a structs.Amount) string {
	sign := ""
	if a < 0 {
		sign = "-"
		a = -a
	}
	whole := int64(a) / structs.AmountScale
	frac := int64(a) % structs.AmountScale

	decimals := l.cfg.DecimalPlaces
	if decimals < 0 {
		decimals = 0
	}
	switch decimals {
	case 0:
		if frac >= structs.AmountScale/2 {
			whole++
		}
	case 1:
		frac = (frac + 5) / 10
		if frac >= 10 {
			whole++
			frac = 0
		}
	}

	digits := strconv.FormatInt(whole, 10)
	if l.cfg.ThousandsSep != "" {
		var groups []string
		for len(digits) > 3 {
			groups = append([]string{digits[len(digits)-3:]}, groups...)
			digits = digits[:len(digits)-3]
		}
		groups = append([]string{digits}, groups...)
		digits = strings.Join(groups, l.cfg.ThousandsSep)
	}

	number := digits
	switch decimals {
	case 0:
	case 1:
		number += "." + strconv.FormatInt(frac, 10)
	default:
		number += "." + pad2(frac) + strings.Repeat("0", decimals-2)
	}

	space := ""
	if l.cfg.SymbolSpace {
		space = " "
	}
	if l.cfg.Symbol == "" {
		return sign + number
	}
	if l.cfg.SymbolSuffix {
		return sign + number + space + l.cfg.Symbol
	}
	return sign + l.cfg.Symbol + space + number
}

func pad2(v int64) string {
	if v < 10 {
		return "0" + strconv.FormatInt(v, 10)
	}
	return strconv.FormatInt(v, 10)
}
