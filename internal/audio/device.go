package audio

import (
	"context"
	"time"
)

// Device is the contract the session controller drives.
type Device interface {
	// Load binds a new resource to the existing playback chain, superseding any previous one.
	// A load whose ctx is cancelled before the resource is bound leaves the chain untouched.
	Load(ctx context.Context, url string) (Media, error)
	// Play starts or resumes output. It may fail, e.g. when the platform output cannot be opened.
	Play(ctx context.Context) error
	Pause()
	Seek(d time.Duration) error
	Position() time.Duration
	Volume() float64
	SetVolume(level float64)
	// Events delivers device notifications. The channel is closed by Close.
	Events() <-chan Event
	// AttachTap activates the analysis tap. It succeeds once per device.
	AttachTap(size int) (*Tap, error)
	Close() error
}

// Media describes a bound resource. Generation increases with every successful load and stamps
// every [Event] the resource produces.
type Media struct {
	Generation uint64
	Duration   time.Duration
}

// EventKind enumerates device notifications.
type EventKind int

const (
	EventTimeUpdate EventKind = iota
	EventLoadedMetadata
	EventEnded
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventTimeUpdate:
		return "time_update"
	case EventLoadedMetadata:
		return "loaded_metadata"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a tagged device notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind       EventKind
	Generation uint64        // load that produced the event
	Time       time.Duration // EventTimeUpdate
	Duration   time.Duration // EventLoadedMetadata
	Err        error         // EventError
}

// WithGeneration stamps the event with the load that produced it.
func (e Event) WithGeneration(gen uint64) Event {
	e.Generation = gen
	return e
}

// TimeUpdate is the constructor for [EventTimeUpdate]
func TimeUpdate(t time.Duration) Event { return Event{Kind: EventTimeUpdate, Time: t} }

// LoadedMetadata is the constructor for [EventLoadedMetadata]
func LoadedMetadata(d time.Duration) Event { return Event{Kind: EventLoadedMetadata, Duration: d} }

// Ended is the constructor for [EventEnded]
func Ended() Event { return Event{Kind: EventEnded} }

// Failed is the constructor for [EventError]
func Failed(err error) Event { return Event{Kind: EventError, Err: err} }
