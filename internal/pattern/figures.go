package pattern

// DefaultGapWeeks is the blank space between figures in the default pattern.
const DefaultGapWeeks = 1

// DefaultFigures returns the three built-in dancing stick figures. Each
// row is one week; each digit is one day's intensity.
func DefaultFigures() []Bitmap {
	return []Bitmap{
		// Arms up, one leg out
		{
			"0030300",
			"0303030",
			"0003000",
			"0003000",
			"0003000",
			"0030000",
			"0300000",
		},
		// Jumping
		{
			"0003000",
			"0033300",
			"0003000",
			"0303030",
			"0003000",
			"0030300",
			"0300030",
		},
		// Twist
		{
			"0003000",
			"0030300",
			"0003000",
			"0030300",
			"0003000",
			"0300030",
			"0030300",
		},
	}
}

// Default returns the built-in pattern of three dancing figures separated
// by one blank week.
func Default() *Pattern {
	p, err := New(DefaultFigures(), DefaultGapWeeks)
	if err != nil {
		// The built-in figures are compile-time data; this cannot happen.
		panic(err)
	}
	return p
}
