package httpclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// PartialSuffix marks a download that has not finished yet.
const PartialSuffix = ".download"

// StatusError is returned for a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download failed with status: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ProgressFunc receives bytes written so far and the expected total, which
// is -1 when unknown.
type ProgressFunc func(written, total int64)

// Download streams url into w.
func (c *Client) Download(ctx context.Context, url string, w io.Writer, onProgress ProgressFunc) (int64, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	cw := &countingWriter{w: w, total: resp.ContentLength, fn: onProgress}
	n, err := io.Copy(cw, resp.Body)
	if err != nil {
		return n, fmt.Errorf("downloading %s: %w", url, err)
	}
	c.logger.Debug("download finished", slog.String("url", url), slog.Int64("bytes", n))
	return n, nil
}

// DownloadFile downloads url to path with the given mode. Data is written to
// path+PartialSuffix and renamed into place only once complete, so path never
// holds a truncated file.
func (c *Client) DownloadFile(ctx context.Context, url, path string, mode os.FileMode, onProgress ProgressFunc) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmp := path + PartialSuffix
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}

	_, err = c.Download(ctx, url, f, onProgress)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing %s: %w", tmp, cerr)
	}
	if err == nil {
		// umask may have stripped bits from the create mode.
		err = os.Chmod(tmp, mode)
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

type countingWriter struct {
	w       io.Writer
	written int64
	total   int64
	fn      ProgressFunc
}

func (p *countingWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.fn != nil {
		p.fn(p.written, p.total)
	}
	return n, err
}
