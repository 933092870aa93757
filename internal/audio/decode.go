package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/desertthunder/serenitune/internal/shared"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

const (
	extMP3  = ".mp3"
	extWAV  = ".wav"
	extFLAC = ".flac"
	extOGG  = ".ogg"
	extOGA  = ".oga"
)

// SupportedExtension reports whether files with the given extension can be decoded.
func SupportedExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case extMP3, extWAV, extFLAC, extOGG, extOGA:
		return true
	}
	return false
}

// nopCloser wraps a bytes.Reader to satisfy io.ReadSeekCloser for in-memory audio.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }

// DefaultMaxDownload caps remote resources when no limit is configured.
const DefaultMaxDownload int64 = 256 << 20

// fetcher reads remote resources over HTTP.
type fetcher struct {
	client *http.Client
	limit  int64
}

func (fr fetcher) withDefaults() fetcher {
	if fr.client == nil {
		fr.client = http.DefaultClient
	}
	if fr.limit <= 0 {
		fr.limit = DefaultMaxDownload
	}
	return fr
}

// open resolves a resource locator into a seekable reader.
// Remote resources are buffered into memory, up to the fetcher's limit, so they can be seeked.
func (fr fetcher) open(ctx context.Context, locator string) (io.ReadSeekCloser, string, error) {
	fr = fr.withDefaults()
	u, err := url.Parse(locator)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", shared.ErrDevice, err)
		}
		resp, err := fr.client.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("%w: fetching %s: %v", shared.ErrDevice, locator, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, "", fmt.Errorf("%w: fetching %s: status %d", shared.ErrDevice, locator, resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, fr.limit+1))
		if err != nil {
			return nil, "", fmt.Errorf("%w: reading %s: %v", shared.ErrDevice, locator, err)
		}
		if int64(len(data)) > fr.limit {
			return nil, "", fmt.Errorf("%w: %s exceeds the %d byte download limit", shared.ErrDevice, locator, fr.limit)
		}
		return nopCloser{bytes.NewReader(data)}, path.Ext(u.Path), nil
	}

	p := locator
	if err == nil && u.Scheme == "file" {
		p = u.Path
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", shared.ErrDevice, err)
	}
	return f, path.Ext(p), nil
}

// decode picks a decoder by extension. It takes ownership of r and closes it on failure.
func decode(r io.ReadSeekCloser, ext string) (beep.StreamSeekCloser, beep.Format, error) {
	var (
		s   beep.StreamSeekCloser
		f   beep.Format
		err error
	)
	switch strings.ToLower(ext) {
	case extMP3:
		s, f, err = mp3.Decode(r)
	case extWAV:
		s, f, err = wav.Decode(r)
	case extFLAC:
		s, f, err = flac.Decode(r)
	case extOGG, extOGA:
		s, f, err = vorbis.Decode(r)
	default:
		r.Close()
		return nil, beep.Format{}, fmt.Errorf("%w: unsupported format %q", shared.ErrDevice, ext)
	}
	if err != nil {
		r.Close()
		return nil, beep.Format{}, fmt.Errorf("%w: decoding: %v", shared.ErrDevice, err)
	}
	return s, f, nil
}

func (fr fetcher) load(ctx context.Context, locator string) (*resource, error) {
	r, ext, err := fr.open(ctx, locator)
	if err != nil {
		return nil, err
	}
	s, f, err := decode(r, ext)
	if err != nil {
		return nil, err
	}
	return &resource{stream: s, format: f, url: locator}, nil
}

// Probe decodes the header of a local file and reports its length.
func Probe(p string) (time.Duration, error) {
	res, err := fetcher{}.load(context.Background(), p)
	if err != nil {
		return 0, err
	}
	defer res.Close()
	return res.Duration(), nil
}
