package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/regscope/regscope/internal/logger"
	"github.com/regscope/regscope/internal/models"
)

// Mirror receives a copy of each downloaded file. Implementations are
// best-effort; a mirror failure never fails the download.
type Mirror interface {
	Put(ctx context.Context, key string, body io.Reader, size int64) error
}

// Downloader fetches attachment files to local disk, optionally mirroring
// them to object storage.
type Downloader struct {
	client  *resty.Client
	baseDir string
	mirror  Mirror
	log     zerolog.Logger
}

// NewDownloader builds a downloader writing under baseDir. mirror may be
// nil when no object storage is configured.
func NewDownloader(baseDir string, mirror Mirror) *Downloader {
	return &Downloader{
		client: resty.New().
			SetTimeout(120 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(2 * time.Second),
		baseDir: baseDir,
		mirror:  mirror,
		log:     logger.With("attachments"),
	}
}

// downloadWorkers bounds concurrent downloads per article.
const downloadWorkers = 4

// DownloadAll fetches the links for one article concurrently. Failures
// are logged and skipped so one dead link never loses the rest; returned
// attachments cover successful downloads only, in link order.
func (d *Downloader) DownloadAll(ctx context.Context, article *models.Article, links []Link) []models.Attachment {
	if len(links) == 0 {
		return nil
	}

	dir := DirFor(d.baseDir, article.CountryCode, article.Source, article.PublishedDate, article.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		d.log.Error().Err(err).Str("dir", dir).Msg("Cannot create attachment directory")
		return nil
	}

	// Names are reserved up front; concurrent workers then never race on
	// the collision suffixes.
	targets := make([]string, len(links))
	for i, link := range links {
		target, err := reservePath(dir, link.Filename)
		if err != nil {
			d.log.Warn().Err(err).Str("url", link.URL).Msg("Cannot reserve attachment path")
			continue
		}
		targets[i] = target
	}

	results := make([]*models.Attachment, len(links))
	var wg sync.WaitGroup
	sem := make(chan struct{}, downloadWorkers)

	for i, link := range links {
		if targets[i] == "" {
			continue
		}
		wg.Add(1)
		go func(i int, link Link) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			att, err := d.download(ctx, article.ID, targets[i], link)
			if err != nil {
				d.log.Warn().Err(err).Str("url", link.URL).Msg("Attachment download failed")
				os.Remove(targets[i])
				return
			}
			results[i] = &att
		}(i, link)
	}
	wg.Wait()

	var saved []models.Attachment
	for _, att := range results {
		if att != nil {
			saved = append(saved, *att)
		}
	}

	d.log.Info().
		Str("article_id", article.ID).
		Int("requested", len(links)).
		Int("saved", len(saved)).
		Msg("Attachment downloads finished")
	return saved
}

func (d *Downloader) download(ctx context.Context, articleID, target string, link Link) (models.Attachment, error) {
	resp, err := d.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(link.URL)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("request failed: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != 200 {
		return models.Attachment{}, fmt.Errorf("HTTP %d", resp.StatusCode())
	}

	f, err := os.Create(target)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("cannot create file: %w", err)
	}

	size, err := io.Copy(f, body)
	closeErr := f.Close()
	if err != nil {
		return models.Attachment{}, fmt.Errorf("write failed: %w", err)
	}
	if closeErr != nil {
		return models.Attachment{}, fmt.Errorf("close failed: %w", closeErr)
	}

	att := models.Attachment{
		ArticleID:    articleID,
		Filename:     filepath.Base(target),
		FilePath:     target,
		FileURL:      link.URL,
		Size:         size,
		DownloadedAt: time.Now().UTC(),
	}

	if d.mirror != nil {
		d.mirrorFile(ctx, att)
	}
	return att, nil
}

// mirrorFile re-reads the saved file and pushes it to object storage.
func (d *Downloader) mirrorFile(ctx context.Context, att models.Attachment) {
	f, err := os.Open(att.FilePath)
	if err != nil {
		d.log.Warn().Err(err).Str("path", att.FilePath).Msg("Mirror read failed")
		return
	}
	defer f.Close()

	key := filepath.ToSlash(att.FilePath)
	if err := d.mirror.Put(ctx, key, f, att.Size); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("Mirror upload failed")
	}
}

// reservePath claims dir/filename by creating an empty file, appending
// _1, _2, ... before the extension until a free name is found. Only a
// name collision triggers another probe; other errors surface to the
// caller.
func reservePath(dir, filename string) (string, error) {
	ext := path.Ext(filename)
	stem := filename[:len(filename)-len(ext)]

	candidate := filepath.Join(dir, filename)
	for i := 1; ; i++ {
		f, err := os.OpenFile(candidate, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.Close()
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("cannot reserve %s: %w", candidate, err)
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
	}
}
