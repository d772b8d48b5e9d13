package syncclient

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ariefcatur/go-bar-pos/internal/fulfillment"
)

type DatePreset string

const (
	PresetNone      DatePreset = ""
	PresetToday     DatePreset = "today"
	PresetYesterday DatePreset = "yesterday"
	PresetLast7     DatePreset = "last7"
	PresetCustom    DatePreset = "custom"
)

const dayLayout = "2006-01-02"

// Filters is everything the operator can change on a queue screen.
type Filters struct {
	Status    fulfillment.Status `json:"status"`
	Preset    DatePreset         `json:"preset,omitempty"`
	From      string             `json:"from,omitempty"` // custom only
	To        string             `json:"to,omitempty"`
	Employees []string           `json:"employees,omitempty"`
	Search    string             `json:"search,omitempty"`
}

func (f Filters) equal(o Filters) bool {
	if f.Status != o.Status || f.Preset != o.Preset || f.From != o.From || f.To != o.To || f.Search != o.Search {
		return false
	}
	if len(f.Employees) != len(o.Employees) {
		return false
	}
	for i := range f.Employees {
		if f.Employees[i] != o.Employees[i] {
			return false
		}
	}
	return true
}

// Range resolves the date preset to an inclusive YYYY-MM-DD pair. Both are
// empty when no date filter applies.
func (f Filters) Range(now time.Time, loc *time.Location) (from, to string) {
	if loc == nil {
		loc = time.Local
	}
	today := now.In(loc)
	switch f.Preset {
	case PresetToday:
		d := today.Format(dayLayout)
		return d, d
	case PresetYesterday:
		d := today.AddDate(0, 0, -1).Format(dayLayout)
		return d, d
	case PresetLast7:
		return today.AddDate(0, 0, -6).Format(dayLayout), today.Format(dayLayout)
	case PresetCustom:
		return f.From, f.To
	}
	return "", ""
}

// fold lowercases and strips accents so "Porcao" finds "Porção".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	// Caser tidak aman dipakai bareng antar goroutine, buat baru
	return cases.Fold().String(strings.TrimSpace(out))
}

// matchSearch reports whether the product name or the item note contains
// the search text.
func matchSearch(it fulfillment.SaleItem, search string) bool {
	q := fold(search)
	if q == "" {
		return true
	}
	return strings.Contains(fold(it.ProductName), q) || strings.Contains(fold(it.Note), q)
}
