// Package spectrum turns the most recent samples captured by an [audio.Tap] into normalized frequency magnitudes.
//
// An [Analyzer] mirrors the behavior of a browser analyser node: Blackman window, real FFT,
// exponential smoothing across frames, then decibel conversion mapped onto 0..1.
package spectrum
