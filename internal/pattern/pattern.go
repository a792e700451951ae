package pattern

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/klevermonicker/gitdance/internal/errors"
)

// DaysPerWeek is the column count of a contribution calendar.
const DaysPerWeek = 7

// Intensity levels produced by a pattern lookup. Each maps to a commit
// count range for the day.
const (
	IntensityNone   = 0
	IntensityLight  = 1
	IntensityMedium = 2
	IntensityDark   = 3
)

// epoch is the fixed reference date pattern offsets are measured from.
var epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// Bitmap is one glyph of the pattern: a vertical stack of week rows, each
// row a string of seven intensity digits 0-3. A bitmap spans rows*7
// calendar days.
type Bitmap []string

// DayWidth returns the number of calendar days the bitmap spans.
func (b Bitmap) DayWidth() int {
	return len(b) * DaysPerWeek
}

// at returns the intensity digit at the given week row and day column.
// Out-of-range lookups yield 0.
func (b Bitmap) at(row, col int) int {
	if row < 0 || row >= len(b) {
		return IntensityNone
	}
	if col < 0 || col >= len(b[row]) {
		return IntensityNone
	}
	return int(b[row][col] - '0')
}

func (b Bitmap) validate() error {
	if len(b) == 0 {
		return errors.Wrap(errors.ErrInvalidPattern, "bitmap has no rows")
	}
	for i, row := range b {
		if len(row) != DaysPerWeek {
			return errors.Wrapf(errors.ErrInvalidPattern,
				"row %d has %d columns, want %d", i, len(row), DaysPerWeek)
		}
		for j, c := range row {
			if c < '0' || c > '3' {
				return errors.Wrapf(errors.ErrInvalidPattern,
					"row %d column %d: %q is not an intensity digit 0-3", i, j, c)
			}
		}
	}
	return nil
}

// Pattern is an immutable ordered sequence of bitmaps tiled along the
// calendar-day axis, with a fixed number of blank gap weeks between
// consecutive bitmaps. Lookups repeat with period Width().
type Pattern struct {
	bitmaps  []Bitmap
	gapWeeks int
	width    int
}

// New validates the bitmaps and builds a Pattern.
func New(bitmaps []Bitmap, gapWeeks int) (*Pattern, error) {
	if len(bitmaps) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidPattern, "no bitmaps")
	}
	if gapWeeks < 0 {
		return nil, errors.Wrapf(errors.ErrInvalidPattern, "negative gap weeks: %d", gapWeeks)
	}

	width := 0
	for i, b := range bitmaps {
		if err := b.validate(); err != nil {
			return nil, fmt.Errorf("bitmap %d: %w", i, err)
		}
		width += b.DayWidth()
	}
	width += gapWeeks * DaysPerWeek * (len(bitmaps) - 1)

	copied := make([]Bitmap, len(bitmaps))
	copy(copied, bitmaps)

	return &Pattern{bitmaps: copied, gapWeeks: gapWeeks, width: width}, nil
}

// Width returns the total pattern period in calendar days: the sum of the
// bitmap day-widths plus the inter-bitmap gaps.
func (p *Pattern) Width() int {
	return p.width
}

// IntensityFor maps a calendar date to an intensity level 0-3. The date's
// day offset since the epoch, taken modulo Width(), is located within the
// concatenated bitmap and gap layout. Gap days and any out-of-range
// lookup yield 0.
func (p *Pattern) IntensityFor(date time.Time) int {
	offset := p.offsetFor(date)

	pos := 0
	for i, b := range p.bitmaps {
		w := b.DayWidth()
		if offset < pos+w {
			day := offset - pos
			return b.at(day/DaysPerWeek, day%DaysPerWeek)
		}
		pos += w

		if i < len(p.bitmaps)-1 {
			gap := p.gapWeeks * DaysPerWeek
			if offset < pos+gap {
				return IntensityNone
			}
			pos += gap
		}
	}

	return IntensityNone
}

// offsetFor returns the date's position within the repeating pattern.
func (p *Pattern) offsetFor(date time.Time) int {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	days := int(day.Sub(epoch).Hours() / 24)

	offset := days % p.width
	if offset < 0 {
		offset += p.width
	}
	return offset
}

// CommitCount draws a commit count for the given intensity:
// 0 -> 0, 1 -> [1,2], 2 -> [3,5], 3 -> [6,8].
func CommitCount(intensity int, rng *rand.Rand) int {
	switch intensity {
	case IntensityLight:
		return 1 + rng.Intn(2)
	case IntensityMedium:
		return 3 + rng.Intn(3)
	case IntensityDark:
		return 6 + rng.Intn(3)
	default:
		return 0
	}
}
