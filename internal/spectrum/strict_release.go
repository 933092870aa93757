//go:build !dev

package spectrum

const strictTaps = false
