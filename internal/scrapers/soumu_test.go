package scrapers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regscope/regscope/internal/config"
)

const soumuFixture = `
<html><body>
<table class="tableList">
<tbody>
<tr>
  <td>R7.11.25</td>
  <td><a href="/menu_news/s-news/01kiban14_5g.html">5G基地局の周波数割当てについて</a></td>
  <td>電波利用</td>
</tr>
<tr>
  <td>2025年11月24日</td>
  <td><a href="/menu_news/s-news/02yusei_post.html">郵便サービスの料金改定</a></td>
  <td>郵政行政</td>
</tr>
<tr>
  <td>2020年1月10日</td>
  <td><a href="/menu_news/s-news/03old_5g.html">5G整備計画の公表（過去分）</a></td>
  <td>電波利用</td>
</tr>
<tr>
  <td>R7.11.25</td>
  <td><a href="/menu_news/s-news/01kiban14_5g.html">5G基地局の周波数割当てについて</a></td>
  <td>電波利用</td>
</tr>
<tr>
  <td>R7.11.26</td>
  <td><a href="/menu_news/s-news/04short.html">短い</a></td>
  <td>電波利用</td>
</tr>
</tbody>
</table>
</body></html>`

func newSoumuForTest(t *testing.T, html string) *SoumuScraper {
	t.Helper()
	s := NewSoumuScraper(newFakeBackend(t, html),
		"https://www.soumu.go.jp/menu_news/s-news", config.SoumuDefaultKeywords)
	s.now = func() time.Time {
		return time.Date(2025, 11, 26, 12, 0, 0, 0, time.UTC)
	}
	return s
}

func TestSoumuScrape(t *testing.T) {
	s := newSoumuForTest(t, soumuFixture)

	result := s.Scrape(context.Background(), "this-week", 25)

	require.True(t, result.Success)
	// Postal item has no matching keyword, the 2020 item is date-filtered,
	// the duplicate row is dropped, and the short title is skipped.
	require.Len(t, result.Articles, 1)

	article := result.Articles[0]
	assert.Equal(t, "5G基地局の周波数割当てについて", article.Title)
	assert.Equal(t, "https://www.soumu.go.jp/menu_news/s-news/01kiban14_5g.html", article.URL)
	assert.Equal(t, "2025-11-25", article.PublishedDate)
	assert.Equal(t, "Soumu", article.Source)
	assert.Equal(t, "Category: 電波利用", article.Snippet)
	assert.ElementsMatch(t, []string{"周波数", "5G", "基地局", "割当て"}, article.MatchedKeywords)
}

func TestSoumuScrapeAllRange(t *testing.T) {
	s := newSoumuForTest(t, soumuFixture)

	result := s.Scrape(context.Background(), "all", 25)

	require.True(t, result.Success)
	// Date filter disabled: the 2020 item passes the keyword filter too.
	assert.Len(t, result.Articles, 2)
}

func TestSoumuScrapeMissingTable(t *testing.T) {
	s := newSoumuForTest(t, "<html><body><p>maintenance</p></body></html>")

	result := s.Scrape(context.Background(), "all", 25)

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "tableList")
}
