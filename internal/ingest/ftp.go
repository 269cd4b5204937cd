package ingest

import (
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP source fetcher.
type FTPOptions struct {
	Timeout time.Duration
}

// FTPFetcher downloads input files over FTP. Credentials come from the URL
// userinfo; anonymous login otherwise.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates an FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPFetcher{opts: opts}
}

// DownloadToFile fetches the FTP URL and writes it to path. Returns bytes
// written.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	host, remotePath, user, pass, err := parseFTPURL(rawURL)
	if err != nil {
		return 0, err
	}

	conn, err := ftp.Dial(host,
		ftp.DialWithTimeout(f.opts.Timeout),
		ftp.DialWithContext(ctx),
	)
	if err != nil {
		return 0, eris.Wrapf(err, "ftp: dial %s", host)
	}
	defer func() {
		if err := conn.Quit(); err != nil {
			zap.L().Debug("ftp quit failed", zap.Error(err))
		}
	}()

	if err := conn.Login(user, pass); err != nil {
		return 0, eris.Wrapf(err, "ftp: login to %s", host)
	}

	resp, err := conn.Retr(remotePath)
	if err != nil {
		return 0, eris.Wrapf(err, "ftp: retrieve %s", remotePath)
	}
	defer resp.Close()

	out, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "ftp: create %s", path)
	}
	defer out.Close()

	n, err := io.Copy(out, resp)
	if err != nil {
		return n, eris.Wrapf(err, "ftp: write %s", path)
	}
	return n, nil
}

// parseFTPURL extracts host (with port), path, and credentials from an FTP URL.
func parseFTPURL(rawURL string) (host, path, user, pass string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", "", "", eris.Wrap(err, "ftp: parse url")
	}
	if u.Scheme != "ftp" {
		return "", "", "", "", eris.Errorf("ftp: expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	user, pass = "anonymous", "anonymous"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}

	return host, u.Path, user, pass, nil
}
