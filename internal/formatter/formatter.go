// package formatter provides functions to export playlist data to various formats (M3U, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/shared"
)

// Formats lists the supported export formats.
var Formats = []string{"json", "m3u", "csv", "markdown", "txt"}

// ExportToM3U converts a playlist to an extended M3U playlist referencing each track's audio url
func ExportToM3U(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("#EXTM3U\n")
	buf.WriteString(fmt.Sprintf("#PLAYLIST:%s\n", p.Title))
	for _, e := range p.Entries {
		buf.WriteString(fmt.Sprintf("#EXTINF:%d,%s\n", e.Track.Duration, e.Track.Title))
		buf.WriteString(e.Track.AudioURL + "\n")
	}

	return buf.Bytes(), nil
}

// ExportToCSV converts a playlist to CSV format with columns: Position, ID, Title, Category, Duration, AudioURL
func ExportToCSV(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Title", "Category", "Duration", "AudioURL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range p.Entries {
		record := []string{
			strconv.Itoa(e.Position),
			e.Track.ID,
			e.Track.Title,
			e.Track.Category,
			strconv.Itoa(e.Track.Duration),
			e.Track.AudioURL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a playlist to Markdown format
func ExportToMarkdown(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", p.Title))

	if p.Description != "" {
		buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", p.Description))
	}

	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", p.Len()))
	buf.WriteString(fmt.Sprintf("**Length**: %s\n\n", shared.FormatDuration(p.TotalDuration())))

	buf.WriteString("## Tracks\n\n")
	for i, e := range p.Entries {
		duration := shared.FormatDuration(e.Track.Duration)
		categoryPart := ""
		if e.Track.Category != "" {
			categoryPart = fmt.Sprintf(" (%s)", e.Track.Category)
		}
		buf.WriteString(fmt.Sprintf("%d. %s%s [%s]\n", i+1, e.Track.Title, categoryPart, duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a playlist to plain text format
func ExportToText(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", p.Title))
	if p.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", p.Description))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", p.Len()))

	for i, e := range p.Entries {
		buf.WriteString(fmt.Sprintf("%d. %s [%s]\n", i+1, e.Track.Title, shared.FormatDuration(e.Track.Duration)))
	}

	return buf.Bytes(), nil
}

// Metadata is the playlist summary written next to track exports.
type Metadata struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	TrackCount    int    `json:"track_count"`
	TotalDuration int    `json:"total_duration"`
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without tracks)
func ToMetadataJSON(p *models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(Metadata{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		TrackCount:    p.Len(),
		TotalDuration: p.TotalDuration(),
	}, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to playlist ID as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(p *models.Playlist, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = p.ID
	}

	csvData, err := ExportToCSV(p)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(p)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// WriteMarkdownExport exports a playlist to {outputDir}/README.md, creating the directory.
//
// Directory name defaults to the playlist ID.
func WriteMarkdownExport(p *models.Playlist, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = p.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(p)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return mdFile, nil
}

// WriteM3UExport writes an extended M3U playlist. Defaults to {playlist.ID}.m3u.
func WriteM3UExport(p *models.Playlist, path string) (string, error) {
	return writeFile(p, path, p.ID+".m3u", ExportToM3U)
}

// WriteTextExport exports a playlist to plain text format.
//
// Defaults to {playlist.ID}_tracks.txt as the filename.
func WriteTextExport(p *models.Playlist, path string) (string, error) {
	return writeFile(p, path, p.ID+"_tracks.txt", ExportToText)
}

// WriteJSONExport writes the full playlist with entries. Defaults to {playlist.ID}.json.
func WriteJSONExport(p *models.Playlist, path string) (string, error) {
	return writeFile(p, path, p.ID+".json", func(p *models.Playlist) ([]byte, error) {
		return shared.MarshalJSON(p, true)
	})
}

// WriteManifest writes v as indented JSON to path.
func WriteManifest(v any, path string) error {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func writeFile(p *models.Playlist, path, fallback string, export func(*models.Playlist) ([]byte, error)) (string, error) {
	if path == "" {
		path = fallback
	}

	data, err := export(p)
	if err != nil {
		return "", fmt.Errorf("failed to generate export: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}
