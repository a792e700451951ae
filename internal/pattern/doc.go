// Package pattern maps calendar dates to commit intensities.
//
// A Pattern is an ordered sequence of bitmaps - grids of intensity digits
// 0-3 where each row is one week - tiled along the calendar-day axis with
// blank gap weeks between them. A date's offset since a fixed epoch,
// taken modulo the pattern width, selects a digit from the layout.
// Lookups are pure and repeat with period Width(), so the same glyphs
// march across the contribution calendar indefinitely.
//
// Intensity levels translate to randomized commit counts via CommitCount,
// which is why the painted pattern is approximate rather than pixel-exact.
package pattern
