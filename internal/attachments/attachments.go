// Package attachments finds document links inside scraped article HTML
// and downloads them into a deterministic on-disk layout.
package attachments

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/regscope/regscope/internal/models"
)

// maxFilenameLen bounds sanitized filenames so the full path stays within
// filesystem limits.
const maxFilenameLen = 200

// allowedExtensions is the document allow-list. Anything else linked from
// an article page (images, nav anchors, tracking links) is ignored.
var allowedExtensions = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {},
	".ppt": {}, ".pptx": {}, ".zip": {}, ".rar": {}, ".7z": {},
	".txt": {}, ".csv": {}, ".json": {}, ".xml": {},
}

// Link is one downloadable document discovered in an article page.
type Link struct {
	URL      string
	Filename string
}

// ExtractLinks scans article HTML for anchors pointing at allow-listed
// document types. Relative hrefs are resolved against baseURL and results
// are deduplicated by resolved URL, keeping first occurrence order.
func ExtractLinks(html, baseURL string) ([]Link, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse article HTML: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	var links []Link
	seen := map[string]struct{}{}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
			return
		}

		resolved := href
		if base != nil {
			if ref, err := url.Parse(href); err == nil {
				resolved = base.ResolveReference(ref).String()
			}
		}

		ext := extensionOf(resolved)
		if _, ok := allowedExtensions[ext]; !ok {
			return
		}

		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}

		links = append(links, Link{
			URL:      resolved,
			Filename: SanitizeFilename(filenameOf(resolved)),
		})
	})

	return links, nil
}

// extensionOf returns the lower-cased extension of a URL's path, ignoring
// query string and fragment.
func extensionOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.ToLower(path.Ext(rawURL))
	}
	return strings.ToLower(path.Ext(u.Path))
}

// filenameOf returns the last path segment of a URL.
func filenameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return path.Base(rawURL)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return "attachment"
	}
	return name
}

// SanitizeFilename strips characters that are unsafe on common filesystems
// and caps the result at maxFilenameLen, preserving the extension.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "attachment"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		default:
			b.WriteRune('_')
		}
	}
	name = b.String()

	if len(name) > maxFilenameLen {
		ext := path.Ext(name)
		if len(ext) > maxFilenameLen {
			ext = ""
		}
		name = name[:maxFilenameLen-len(ext)] + ext
	}
	return name
}

// DirFor returns the storage directory for an article's attachments:
// <base>/<country>/<source>/<YYYY-MM>/<articleID>. Articles without a
// published date land under NO_DATE.
func DirFor(base string, countryCode models.CountryCode, source string, publishedDate *time.Time, articleID string) string {
	country := string(countryCode)
	if country == "" {
		country = "UNKNOWN"
	}

	month := "NO_DATE"
	if publishedDate != nil {
		month = publishedDate.Format("2006-01")
	}

	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		source = "unknown"
	}

	return path.Join(base, country, source, month, articleID)
}
