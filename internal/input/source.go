// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package input streams dump lines from local files or HTTP, decompressing
// on the fly and keeping byte counters for progress reporting.
package input

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"

	"github.com/klauspost/compress/gzip"

	"github.com/pdiddy/wikiplace/internal/httputil"
	"github.com/pdiddy/wikiplace/pkg/types"
)

const readBufferSize = 1 << 20

// Counters reports how far a source has been read. Total is the
// compressed length of the input, or -1 when it is not known.
type Counters struct {
	Compressed   int64
	Decompressed int64
	Total        int64
}

// Source yields dump lines one at a time. Next returns io.EOF once the
// input is exhausted.
type Source interface {
	Next() ([]byte, error)
	Offset() int64
	Counters() Counters
	Close() error
}

// Stream is a Source over a byte stream.
type Stream struct {
	body         io.Closer
	decoder      io.Closer
	compressed   *countingReader
	decompressed *countingReader
	lines        *bufio.Reader
	total        int64
	offset       int64
	done         bool
}

// Open resolves a locator to a Stream. Locators starting with http:// or
// https:// are fetched; anything else is a local path. Decompression is
// chosen by the .bz2 or .gz suffix.
func Open(ctx context.Context, client *http.Client, cfg types.SourceConfig) (*Stream, error) {
	loc := cfg.Locator
	if loc == "" {
		return nil, errors.New("no source locator configured")
	}
	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
		return openHTTP(ctx, client, cfg)
	}
	return OpenFile(loc)
}

// OpenFile opens a local dump file.
func OpenFile(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	total := int64(-1)
	if info, err := f.Stat(); err == nil && info.Mode().IsRegular() {
		total = info.Size()
	}
	s, err := NewStream(f, path, total)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func openHTTP(ctx context.Context, client *http.Client, cfg types.SourceConfig) (*Stream, error) {
	u, err := url.Parse(cfg.Locator)
	if err != nil {
		return nil, fmt.Errorf("parsing source URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, client, req, cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u.Redacted(), err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %s: HTTP %d", u.Redacted(), resp.StatusCode)
	}

	s, err := NewStream(resp.Body, u.Path, resp.ContentLength)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	return s, nil
}

// NewStream wraps r, decompressing according to the suffix of name. A
// negative total marks the length as unknown.
func NewStream(r io.ReadCloser, name string, total int64) (*Stream, error) {
	if total < 0 {
		total = -1
	}
	s := &Stream{body: r, total: total, compressed: &countingReader{r: r}}

	var decoded io.Reader
	switch {
	case strings.HasSuffix(name, ".bz2"):
		decoded = bzip2.NewReader(bufio.NewReaderSize(s.compressed, readBufferSize))
	case strings.HasSuffix(name, ".gz"):
		zr, err := gzip.NewReader(s.compressed)
		if err != nil {
			return nil, fmt.Errorf("reading gzip header of %s: %w", name, err)
		}
		s.decoder = zr
		decoded = zr
	default:
		decoded = s.compressed
	}
	s.decompressed = &countingReader{r: decoded}
	s.lines = bufio.NewReaderSize(s.decompressed, readBufferSize)
	return s, nil
}

// Next returns the next line without its line terminator (LF or CRLF).
// The returned slice is owned by the caller.
func (s *Stream) Next() ([]byte, error) {
	if s.done {
		return nil, io.EOF
	}
	line, err := s.lines.ReadBytes('\n')
	s.offset += int64(len(line))
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading at offset %d: %w", s.offset, err)
		}
		s.done = true
		if len(line) == 0 {
			return nil, io.EOF
		}
		return bytes.TrimSuffix(line, []byte{'\r'}), nil
	}
	return bytes.TrimSuffix(line[:len(line)-1], []byte{'\r'}), nil
}

// Offset is the number of decompressed bytes handed out as lines.
func (s *Stream) Offset() int64 { return s.offset }

// Counters snapshots the byte counters.
func (s *Stream) Counters() Counters {
	return Counters{
		Compressed:   s.compressed.n.Load(),
		Decompressed: s.decompressed.n.Load(),
		Total:        s.total,
	}
}

// Close releases the decoder and the underlying stream.
func (s *Stream) Close() error {
	var errs []error
	if s.decoder != nil {
		errs = append(errs, s.decoder.Close())
	}
	errs = append(errs, s.body.Close())
	return errors.Join(errs...)
}

type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}
