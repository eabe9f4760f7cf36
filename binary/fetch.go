package binary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Fetcher retrieves the contents of url into the file at destination.
type Fetcher func(ctx context.Context, url, destination string) error

// NewHTTPClient returns a client suited for artifact downloads.
// There's no overall deadline as artifacts can be large; instead every phase
// up to the response headers is bounded by timeout so a hung server
// eventually surfaces as an error.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
			ExpectContinueTimeout: time.Second,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// download retrieves url into destination.
// Transport failures, non success responses and empty or truncated payloads
// are reported as [DownloadError].
func download(ctx context.Context, client *http.Client, url, destination string) (err error) {
	logdetail(fmt.Sprintf("downloading %s", url))

	start := time.Now()
	defer logtiming(start, &err)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DownloadError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("received unexpected response: http%d", resp.StatusCode),
		}
	}

	data, finish := progress(resp.Body, resp.ContentLength)
	defer finish()

	out, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", destination, err)
	}

	written, err := io.Copy(out, data)
	if closeerr := out.Close(); err == nil {
		err = closeerr
	}
	if err != nil {
		return &DownloadError{URL: url, Err: fmt.Errorf("transfer interrupted after %d bytes: %w", written, err)}
	}

	if written == 0 {
		return &DownloadError{URL: url, Err: errors.New("empty payload")}
	}

	if resp.ContentLength >= 0 && written != resp.ContentLength {
		return &DownloadError{
			URL: url,
			Err: fmt.Errorf("truncated payload: got %d of %d bytes", written, resp.ContentLength),
		}
	}

	return nil
}

// progress wraps an io.Reader to display a progress bar when running in a terminal.
// Returns the wrapped reader and a function to finalize the progress display.
// The progress bar shows transfer speed and completion percentage.
func progress(reader io.Reader, size int64) (io.Reader, func()) {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return reader, func() {}
	}

	bar := pb.
		New64(size).
		SetTemplate(
			pb.ProgressBarTemplate(
				color.New(color.FgHiBlack).Sprint(
					`   └ {{string . "prefix"}}{{counters . }}` +
						` {{bar . "[" "=" ">" " " "]" }} {{percent . }}` +
						` {{speed . }} {{string . "suffix"}}`,
				),
			),
		).
		SetRefreshRate(time.Second / 60).
		SetMaxWidth(100).
		Start()

	return bar.NewProxyReader(reader), func() { bar.Finish() }
}
