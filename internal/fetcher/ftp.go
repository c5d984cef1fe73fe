package fetcher

import (
	"context"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout          time.Duration
	MaxContentLength int64
}

// FTPFetcher downloads cache copies from FTP servers.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates an FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxContentLength == 0 {
		opts.MaxContentLength = 10_000_000
	}
	return &FTPFetcher{opts: opts}
}

func parseFTPURL(rawURL string) (host, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "fetcher: parse ftp url")
	}
	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}
	if u.Path == "" {
		return "", "", eris.New("fetcher: empty path in ftp url")
	}
	return host, u.Path, nil
}

// FetchToTemp retrieves the file anonymously and writes it to a
// temporary file, truncating at the content-length ceiling.
func (f *FTPFetcher) FetchToTemp(ctx context.Context, rawURL string) (string, error) {
	host, path, err := parseFTPURL(rawURL)
	if err != nil {
		return "", err
	}

	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("path", path))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: ftp dial %s", host)
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return "", eris.Wrap(err, "fetcher: ftp login")
	}

	resp, err := conn.Retr(path)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: ftp retrieve %s", path)
	}
	defer resp.Close() //nolint:errcheck

	tmp, err := os.CreateTemp("", tempPattern(rawURL))
	if err != nil {
		return "", eris.Wrap(err, "fetcher: create temp file")
	}

	written, err := copyCapped(tmp, resp, f.opts.MaxContentLength)
	if closeErr := tmp.Close(); closeErr != nil && err == nil {
		err = eris.Wrap(closeErr, "fetcher: close temp file")
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", eris.Wrapf(err, "fetcher: ftp download %s", rawURL)
	}

	zap.L().Info("downloaded ok",
		zap.String("url", rawURL),
		zap.Int64("bytes", written),
	)
	return tmp.Name(), nil
}
