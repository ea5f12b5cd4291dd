// Package export writes the final stats snapshot of a process to durable
// storage at exit.
//
// The target is a URL whose scheme picks the backend:
//
//	file:///var/lib/srvd/final.json   JSON file, replaced atomically
//	badger:///var/lib/srvd/stats      BadgerDB keyed by snapshot time
//	s3://bucket/prefix                one JSON object per snapshot
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/marmos91/srvkit/pkg/stats"
)

// ErrUnsupportedScheme is returned by Open for an unknown target scheme.
var ErrUnsupportedScheme = errors.New("export: unsupported target scheme")

// Record is one exported snapshot with the identity of the process that took it.
type Record struct {
	Server     string         `json:"server"`
	InstanceID string         `json:"instance_id"`
	ExitCode   int            `json:"exit_code"`
	Snapshot   stats.Snapshot `json:"snapshot"`
}

// Exporter persists records.
type Exporter interface {
	Export(ctx context.Context, rec Record) error
	Close() error
}

// S3Options configures the s3:// backend.
type S3Options struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Options configures Open.
type Options struct {
	S3     S3Options
	Logger *slog.Logger
}

// Open returns the exporter selected by target's scheme.
func Open(ctx context.Context, target string, opts Options) (Exporter, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("export: invalid target %q: %w", target, err)
	}

	switch u.Scheme {
	case "file":
		return NewFileExporter(targetPath(u)), nil
	case "badger":
		return OpenBadger(targetPath(u), opts.Logger)
	case "s3":
		return NewS3Exporter(ctx, u.Host, u.Path, opts.S3)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

// Scheme returns target's scheme, or "" if it does not parse.
func Scheme(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return u.Scheme
}

// targetPath accepts both file:///abs/path and the relative file://dir/path form.
func targetPath(u *url.URL) string {
	if u.Host != "" {
		return u.Host + u.Path
	}
	return u.Path
}

// timeKey formats t so that keys sort chronologically as strings.
func timeKey(t time.Time) string {
	return t.UTC().Format("20060102T150405.000000000Z")
}

func encode(rec Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("export: encode snapshot: %w", err)
	}
	return data, nil
}
