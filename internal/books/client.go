// Package books はGoogle Books APIから書籍メタデータを取得し、表示用に正規化します。
package books

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// 欠損フィールドの既定値。1件の不備で検索結果全体を落とさないための埋め草です。
	placeholderTitle  = "No Title"
	placeholderAuthor = "Unknown author"

	maxResults = 20
)

// Client は書籍メタデータAPIへのクライアントです。
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient は Client を作成します。baseURL は末尾スラッシュなしのAPIルートです。
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Result は表示用に正規化した検索結果1件です。
type Result struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	ImageURL string `json:"image"`
}

type apiResponse struct {
	Items []apiItem `json:"items"`
}

type apiItem struct {
	VolumeInfo struct {
		Title      string   `json:"title"`
		Authors    []string `json:"authors"`
		ImageLinks struct {
			Thumbnail string `json:"thumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

// Search は query で書籍を検索し、正規化した結果を返します。
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	endpoint := fmt.Sprintf("%s/volumes?q=%s&maxResults=%d",
		c.baseURL, url.QueryEscape(query), maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("books api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("books api returned status %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode books api response: %w", err)
	}

	return normalize(payload.Items), nil
}

// normalize は各アイテムからタイトル・著者・サムネイルを取り出します。
// 欠けているフィールドは既定値で埋め、1件単位で処理します。
func normalize(items []apiItem) []Result {
	results := make([]Result, 0, len(items))
	for _, item := range items {
		title := item.VolumeInfo.Title
		if title == "" {
			title = placeholderTitle
		}
		results = append(results, Result{
			Title:    title,
			Author:   FormatAuthors(item.VolumeInfo.Authors),
			ImageURL: item.VolumeInfo.ImageLinks.Thumbnail,
		})
	}
	return results
}

// FormatAuthors は著者リストを表示用の1つの文字列にします。
func FormatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return placeholderAuthor
	case 1:
		return authors[0]
	case 2:
		return authors[0] + " and " + authors[1]
	default:
		return strings.Join(authors[:len(authors)-1], ", ") + " and " + authors[len(authors)-1]
	}
}
