//go:build dev

package spectrum

const strictTaps = true
