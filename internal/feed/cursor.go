package feed

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Mode selects how a request paginates. It is fixed for the whole call.
type Mode int

const (
	// ModePage paginates by ordinal page, one query round per call.
	ModePage Mode = iota
	// ModeTimestamp paginates by an exclusive sort-key bound and backfills.
	ModeTimestamp
)

func (m Mode) String() string {
	if m == ModeTimestamp {
		return "timestamp"
	}
	return "page"
}

// Order is the fixed direction a Source returns candidates in.
type Order int

const (
	Descending Order = iota
	Ascending
)

// Cursor is a pagination position: a page ordinal, "start from now", or an exclusive
// sort-key bound. A bound may carry the id of the last candidate served so sources can
// resume inside a run of equal keys. The zero value is not a valid cursor; use the
// constructors.
type Cursor struct {
	mode    Mode
	page    int
	fromNow bool
	value   float64
	after   string
}

// PageCursor returns a page-mode cursor for the 1-based page n.
func PageCursor(n int) Cursor {
	return Cursor{mode: ModePage, page: n}
}

// FromNow returns a timestamp-mode cursor that starts at the feed's origin
// (the current time for time-ordered feeds).
func FromNow() Cursor {
	return Cursor{mode: ModeTimestamp, fromNow: true}
}

// At returns a timestamp-mode cursor bounded by v (exclusive).
func At(v float64) Cursor {
	return Cursor{mode: ModeTimestamp, value: v}
}

// AtAfter returns a timestamp-mode cursor positioned just past the candidate (v, id).
// Candidates keyed v are still served when their id sorts after id in the feed direction.
// An empty id is the same as At(v).
func AtAfter(v float64, id string) Cursor {
	return Cursor{mode: ModeTimestamp, value: v, after: id}
}

func (c Cursor) Mode() Mode      { return c.mode }
func (c Cursor) IsPage() bool    { return c.mode == ModePage }
func (c Cursor) IsFromNow() bool { return c.mode == ModeTimestamp && c.fromNow }

// Page returns the page ordinal. Only meaningful in page mode.
func (c Cursor) Page() int { return c.page }

// Value returns the sort-key bound. Only meaningful for a resolved timestamp cursor.
func (c Cursor) Value() float64 { return c.value }

// After returns the tie-breaking id of a timestamp cursor, empty when there is none.
func (c Cursor) After() string { return c.after }

// Offset is the number of candidates a page-mode query skips.
func (c Cursor) Offset(limit int) int {
	if c.page <= 1 {
		return 0
	}
	return (c.page - 1) * limit
}

// resolve replaces FromNow with At(origin()).
func (c Cursor) resolve(origin func() float64) Cursor {
	if !c.IsFromNow() {
		return c
	}
	return At(origin())
}

func (c Cursor) validate() error {
	switch c.mode {
	case ModePage:
		if c.page < 1 {
			return fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidRequest, c.page)
		}
	case ModeTimestamp:
		if c.fromNow {
			return nil
		}
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) || c.value < 0 {
			return fmt.Errorf("%w: cursor must be a finite non-negative number, got %v", ErrInvalidRequest, c.value)
		}
	default:
		return fmt.Errorf("%w: unknown cursor mode %d", ErrInvalidRequest, c.mode)
	}
	return nil
}

func (c Cursor) String() string {
	switch {
	case c.IsPage():
		return fmt.Sprintf("page(%d)", c.page)
	case c.fromNow:
		return "now"
	case c.after != "":
		return "at(" + strconv.FormatFloat(c.value, 'f', -1, 64) + ", " + c.after + ")"
	default:
		return "at(" + strconv.FormatFloat(c.value, 'f', -1, 64) + ")"
	}
}

// ParseCursor builds a cursor from the maxs/page request parameters.
// A missing maxs selects page mode; a maxs whose integer part is zero means
// "start from now"; anything else is an exclusive bound, refined by after when given.
func ParseCursor(maxs string, hasMaxs bool, page, after string) (Cursor, error) {
	if !hasMaxs {
		n := 1
		if page = strings.TrimSpace(page); page != "" {
			var err error
			n, err = strconv.Atoi(page)
			if err != nil {
				return Cursor{}, fmt.Errorf("%w: page %q is not an integer", ErrInvalidRequest, page)
			}
		}
		c := PageCursor(n)
		return c, c.validate()
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(maxs), 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: maxs %q is not a number", ErrInvalidRequest, maxs)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Cursor{}, fmt.Errorf("%w: maxs must be finite", ErrInvalidRequest)
	}
	if math.Trunc(v) == 0 {
		return FromNow(), nil
	}
	c := AtAfter(v, strings.TrimSpace(after))
	return c, c.validate()
}

// ParsePageSize parses nbr, falling back to def when empty and clamping to max.
// A max of zero disables clamping.
func ParsePageSize(nbr string, def, max int) (int, error) {
	n := def
	if nbr = strings.TrimSpace(nbr); nbr != "" {
		var err error
		n, err = strconv.Atoi(nbr)
		if err != nil {
			return 0, fmt.Errorf("%w: nbr %q is not an integer", ErrInvalidRequest, nbr)
		}
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: nbr must be >= 1, got %d", ErrInvalidRequest, n)
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}
