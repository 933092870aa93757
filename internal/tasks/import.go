package tasks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/desertthunder/serenitune/internal/audio"
	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/shared"
	"github.com/dhowden/tag"
)

// ImportOpts contains configuration for a library import.
type ImportOpts struct {
	Category   string // Category for every imported track; defaults to the file's genre tag
	NumWorkers int    // Concurrent metadata readers (default: 5, max: 10)
}

// ImportFailure records a file that could not be imported.
type ImportFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ImportResult summarizes a library import.
type ImportResult struct {
	Root     string          `json:"root"`
	Scanned  int             `json:"scanned"`
	Created  int             `json:"created"`
	Updated  int             `json:"updated"`
	Failures []ImportFailure `json:"failures,omitempty"`
}

type importOutcome struct {
	path  string
	track *models.Track
	err   error
}

// Import scans root for playable audio files and stores one track per file.
//
// Metadata is read by a pool of workers; tracks are stored from the calling goroutine, so the
// store sees one writer. Files whose duration cannot be determined are reported as failures.
func (e *LibraryEngine) Import(ctx context.Context, prog chan<- ProgressUpdate, root string, opts ImportOpts) (*ImportResult, error) {
	if e.store == nil {
		return nil, fmt.Errorf("%w: track store not initialized", shared.ErrServiceUnavailable)
	}

	paths, err := scanAudioFiles(root)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Root: root, Scanned: len(paths), Failures: []ImportFailure{}}
	e.sendProgress(prog, scanUpdate(len(paths), root))
	e.logger.Info("scanned library", "root", root, "files", len(paths))

	jobs := make(chan string)
	outcomes := make(chan importOutcome)

	var wg sync.WaitGroup
	for range clampWorkers(opts.NumWorkers) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				track, err := e.readTrack(path, opts.Category)
				select {
				case outcomes <- importOutcome{path: path, track: track, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, path := range paths {
			select {
			case jobs <- path:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	total := len(paths)
	step := 0
	for out := range outcomes {
		step++
		if out.err != nil {
			result.Failures = append(result.Failures, ImportFailure{Path: out.path, Error: out.err.Error()})
			e.sendProgress(prog, readFailedUpdate(step, total, out.path, out.err))
			e.logger.Warn("skipping file", "path", out.path, "err", out.err)
			continue
		}

		created, err := e.store.Upsert(ctx, out.track)
		if err != nil {
			result.Failures = append(result.Failures, ImportFailure{Path: out.path, Error: err.Error()})
			e.sendProgress(prog, readFailedUpdate(step, total, out.path, err))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
		e.sendProgress(prog, storedTrackUpdate(step, total, out.track, created))
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// readTrack builds a track from the file's tags, falling back to the file name for the title.
func (e *LibraryEngine) readTrack(path, category string) (*models.Track, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	track := &models.Track{AudioURL: abs, Category: category}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	m, tagErr := tag.ReadFrom(f)
	f.Close()

	switch {
	case tagErr == nil:
		track.Title = strings.TrimSpace(m.Title())
		track.Description = strings.TrimSpace(m.Comment())
		if track.Category == "" {
			track.Category = strings.ToLower(strings.TrimSpace(m.Genre()))
		}
	case !errors.Is(tagErr, tag.ErrNoTagsFound):
		e.logger.Debug("unreadable tags", "path", abs, "err", tagErr)
	}

	if track.Title == "" {
		track.Title = strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	}

	d, err := e.probe(abs)
	if err != nil {
		return nil, err
	}
	track.Duration = int(math.Round(d.Seconds()))

	return track, nil
}

// scanAudioFiles walks root and returns every file with a decodable extension in lexical order.
func scanAudioFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	if !info.IsDir() {
		if audio.SupportedExtension(filepath.Ext(root)) {
			return []string{root}, nil
		}
		return nil, fmt.Errorf("%w: %s is not a supported audio file", shared.ErrInvalidArgument, root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if audio.SupportedExtension(filepath.Ext(path)) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return paths, nil
}
