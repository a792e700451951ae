// Package painter turns pattern intensities into commit activity. It
// owns the live and backdated commit loops, their push cadence, and the
// single test-commit path used for connectivity checks.
package painter
