package shared

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// openers maps GOOS to the command that hands a URL to the desktop's default handler.
var openers = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"freebsd": {"xdg-open"},
	"openbsd": {"xdg-open"},
	"windows": {"rundll32", "url.dll,FileProtocolHandler"},
}

// browserCommand builds the opener for goos. Only absolute http(s) URLs are accepted.
func browserCommand(ctx context.Context, goos, target string) (*exec.Cmd, error) {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: not an http url: %q", ErrInvalidInput, target)
	}
	argv, ok := openers[goos]
	if !ok {
		return nil, fmt.Errorf("%w: no browser opener for %s", ErrUnsupportedPlatform, goos)
	}
	args := append(argv[1:len(argv):len(argv)], u.String())
	return exec.CommandContext(ctx, argv[0], args...), nil
}

// OpenURL opens target in the default browser without waiting for it to exit.
func OpenURL(ctx context.Context, target string) error {
	cmd, err := browserCommand(ctx, runtime.GOOS, target)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	go cmd.Wait()
	return nil
}
