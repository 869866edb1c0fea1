package irma

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// open opens path for reading, transparently decompressing gzip input.
// "-" reads stdin.
func open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("create gzip reader for %s: %w", path, err)
		}
		return &readCloser{Reader: gz, closers: []io.Closer{f, gz}}, nil
	}
	return &readCloser{Reader: br, closers: []io.Closer{f}}, nil
}

// loadFile opens path and hands it to load.
func loadFile[T any](path string, load func(io.Reader) (T, error)) (T, error) {
	var zero T
	rc, err := open(path)
	if err != nil {
		return zero, err
	}
	defer rc.Close()
	v, err := load(rc)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
