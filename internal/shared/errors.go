package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Environment errors
	ErrNoMigrations        = fmt.Errorf("no applied migrations")
	ErrUnsupportedPlatform = fmt.Errorf("unsupported platform")

	// Playback errors
	ErrDevice          = fmt.Errorf("output device failure")
	ErrPlaybackBlocked = fmt.Errorf("playback blocked")
	ErrNoResource      = fmt.Errorf("no resource loaded")
	ErrTapConflict     = fmt.Errorf("analysis tap already attached")
	ErrNavigationMiss  = fmt.Errorf("current track not in active playlist")

	// API and provider errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
