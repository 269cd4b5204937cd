package ingest

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/reconcile-cli/internal/table"
)

// Loader resolves a source reference (local path, http(s) URL, or ftp URL)
// and parses it into a table by extension: .xlsx/.xlsm are read as
// spreadsheets, everything else as delimited text.
type Loader struct {
	HTTP *HTTPFetcher
	FTP  *FTPFetcher
	CSV  CSVOptions
	XLSX XLSXOptions
}

// NewLoader creates a Loader. Zero-value options fall back to the fetcher
// defaults.
func NewLoader(httpOpts HTTPOptions, csvOpts CSVOptions, xlsxOpts XLSXOptions) *Loader {
	return &Loader{
		HTTP: NewHTTPFetcher(httpOpts),
		FTP:  NewFTPFetcher(FTPOptions{Timeout: httpOpts.Timeout}),
		CSV:  csvOpts,
		XLSX: xlsxOpts,
	}
}

// Load fetches and parses one source into a table. Remote sources are
// downloaded to a temp file first; the table name is the source's base name.
func (l *Loader) Load(ctx context.Context, src string) (*table.Table, error) {
	localPath, name, cleanup, err := l.resolve(ctx, src)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(localPath, name, l.XLSX)
	default:
		f, err := os.Open(localPath)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: open %s", localPath)
		}
		defer f.Close()
		return ReadCSV(f, name, l.CSV)
	}
}

// resolve returns a local path for the source, downloading when remote.
func (l *Loader) resolve(ctx context.Context, src string) (localPath, name string, cleanup func(), err error) {
	noop := func() {}

	scheme := ""
	if u, perr := url.Parse(src); perr == nil {
		scheme = u.Scheme
	}

	switch scheme {
	case "http", "https", "ftp":
	default:
		return src, filepath.Base(src), noop, nil
	}

	u, _ := url.Parse(src)
	name = path.Base(u.Path)
	if name == "." || name == "/" {
		name = "download.csv"
	}

	tmp, err := os.CreateTemp("", "reconcile-*-"+name)
	if err != nil {
		return "", "", noop, eris.Wrap(err, "ingest: create temp file")
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	cleanup = func() { _ = os.Remove(tmpPath) }

	var n int64
	switch scheme {
	case "ftp":
		n, err = l.FTP.DownloadToFile(ctx, src, tmpPath)
	default:
		n, err = l.HTTP.DownloadToFile(ctx, src, tmpPath)
	}
	if err != nil {
		cleanup()
		return "", "", noop, err
	}

	zap.L().Info("downloaded source",
		zap.String("url", src),
		zap.Int64("bytes", n),
	)
	return tmpPath, name, cleanup, nil
}
