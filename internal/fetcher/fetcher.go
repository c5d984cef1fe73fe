package fetcher

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher downloads a remote cache copy of a resource to a temporary
// file for sniffing. The caller owns the returned path and must
// remove it when done.
type Fetcher interface {
	FetchToTemp(ctx context.Context, rawURL string) (string, error)
}

// Client dispatches fetches by URL scheme. Only http, https, and ftp
// resources may be fetched.
type Client struct {
	http *HTTPFetcher
	ftp  *FTPFetcher
}

// NewClient builds a Client around the given HTTP options, with FTP
// support sharing the same timeout.
func NewClient(opts HTTPOptions) *Client {
	return &Client{
		http: NewHTTPFetcher(opts),
		ftp:  NewFTPFetcher(FTPOptions{Timeout: opts.Timeout, MaxContentLength: opts.MaxContentLength}),
	}
}

// FetchToTemp downloads rawURL to a temporary file.
func (c *Client) FetchToTemp(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: parse url %s", rawURL)
	}
	switch u.Scheme {
	case "http", "https":
		return c.http.FetchToTemp(ctx, rawURL)
	case "ftp":
		return c.ftp.FetchToTemp(ctx, rawURL)
	default:
		return "", eris.Errorf("fetcher: only http, https, and ftp resources may be fetched, got %q", u.Scheme)
	}
}

// tempPattern derives an os.CreateTemp pattern from the URL's
// filename component, so the sniffer sees a meaningful suffix.
func tempPattern(rawURL string) string {
	name := rawURL
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ReplaceAll(name, "*", "")
	if name == "" {
		return "dataqa-download"
	}
	return "dataqa-*-" + name
}
