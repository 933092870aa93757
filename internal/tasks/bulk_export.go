package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/serenitune/internal/formatter"
	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/shared"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     string  // Export format: json, m3u, csv, markdown, txt
	OutputDir  string  // Base output directory (default: playlists_export_{epoch})
	NumWorkers int     // Concurrent workers (default: 5, max: 10)
	RateLimit  float64 // Playlist fetches per second (default: 5)
}

// PlaylistExportResult is the outcome of exporting a single playlist.
type PlaylistExportResult struct {
	PlaylistID    string   `json:"playlist_id"`
	PlaylistTitle string   `json:"playlist_title"`
	Success       bool     `json:"success"`
	Files         []string `json:"files,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// BulkExportResult summarizes a bulk export and is written as the manifest.
type BulkExportResult struct {
	Format            string                 `json:"format"`
	TotalPlaylists    int                    `json:"total_playlists"`
	SuccessfulExports int                    `json:"successful_exports"`
	FailedExports     int                    `json:"failed_exports"`
	OutputDirectory   string                 `json:"output_directory"`
	ManifestPath      string                 `json:"-"`
	Results           []PlaylistExportResult `json:"results"`
}

type exportJob struct {
	playlist *models.Playlist
}

// BulkExport exports multiple playlists concurrently with rate limiting and progress tracking.
//
// Playlists are fetched at most RateLimit per second and written by a worker pool.
// Partial failures are recorded per playlist; a manifest summarizing the run is written last.
func (e *LibraryEngine) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, ids []string, opts BulkExportOpts) (*BulkExportResult, error) {
	if e.playlists == nil {
		return nil, fmt.Errorf("%w: playlist provider not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Format == "" {
		opts.Format = "json"
	}
	if !lo.Contains(formatter.Formats, opts.Format) {
		return nil, fmt.Errorf("%w: unsupported export format %q", shared.ErrInvalidFlag, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("playlists_export_%d", time.Now().Unix())
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Format:          opts.Format,
		TotalPlaylists:  len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan exportJob, len(ids))
	results := make(chan PlaylistExportResult, len(ids))

	var wg sync.WaitGroup
	for range clampWorkers(opts.NumWorkers) {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, id := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			e.sendProgress(prog, fetchingPlaylistUpdate(i+1, len(ids), id))
			p, err := e.playlists.GetPlaylist(ctx, id)
			if err != nil {
				results <- PlaylistExportResult{
					PlaylistID:    id,
					PlaylistTitle: fmt.Sprintf("Unknown (%s)", id),
					Error:         fmt.Sprintf("failed to fetch playlist: %v", err),
				}
				continue
			}

			jobs <- exportJob{playlist: p}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.PlaylistTitle, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(ids), res.PlaylistTitle, fmt.Errorf("%s", res.Error)))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// exportWorker exports playlists from the jobs channel.
func (e *LibraryEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan exportJob,
	results chan<- PlaylistExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}
		results <- exportSinglePlaylist(job.playlist, opts)
	}
}

// exportSinglePlaylist exports a single playlist to the requested format.
func exportSinglePlaylist(p *models.Playlist, opts BulkExportOpts) PlaylistExportResult {
	result := PlaylistExportResult{
		PlaylistID:    p.ID,
		PlaylistTitle: p.Title,
		Files:         []string{},
	}

	base := filepath.Join(opts.OutputDir, p.ID)

	var files []string
	var err error
	switch opts.Format {
	case "csv":
		var res *formatter.CSVExportResult
		if res, err = formatter.WriteCSVExport(p, base); err == nil {
			files = []string{res.TracksFile, res.MetadataFile}
		}
	case "markdown":
		var file string
		if file, err = formatter.WriteMarkdownExport(p, base); err == nil {
			files = []string{file}
		}
	case "m3u":
		var file string
		if file, err = formatter.WriteM3UExport(p, base+".m3u"); err == nil {
			files = []string{file}
		}
	case "txt":
		var file string
		if file, err = formatter.WriteTextExport(p, base+"_tracks.txt"); err == nil {
			files = []string{file}
		}
	default:
		var file string
		if file, err = formatter.WriteJSONExport(p, base+".json"); err == nil {
			files = []string{file}
		}
	}

	if err != nil {
		result.Error = fmt.Sprintf("%s export failed: %v", opts.Format, err)
		return result
	}
	result.Files = files
	result.Success = true
	return result
}
