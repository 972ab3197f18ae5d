// Package github 负责通过 GitHub Contents API 拉取清单文件的原始字节，
// 并利用 If-None-Match/ETag 条件请求避免重复下载未变化的内容。
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/version-check/version-check/internal/config"
)

const (
	acceptHeader = "application/vnd.github+json"
	userAgent    = "version-check-server"

	// 错误响应正文的截断长度，仅用于诊断输出。
	maxErrorBodyBytes = 300
)

// ErrMissingLocation 表示 owner/repo/path 等仓库定位参数未配置完整。
var ErrMissingLocation = errors.New("missing GitHub configuration (owner/repo/path)")

// UpstreamError 表示上游返回了预期之外的状态码、响应体或网络层错误。
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("github request failed: %v", e.Err)
	}
	return fmt.Sprintf("github api error: %d - %s", e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// FetchResult 是一次条件拉取的结果。Unchanged 为 true 时 Content 为空，
// ETag 保持调用方传入的前置 token。
type FetchResult struct {
	Unchanged bool
	ETag      string
	Content   []byte
}

// contentsPayload 对应 Contents API 的 JSON 信封。
type contentsPayload struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// Client 持有共享的 http.Client 与注入的仓库定位参数，自身无可变状态。
type Client struct {
	httpClient *http.Client
	baseURL    string
	owner      string
	repo       string
	branch     string
	path       string
	token      string
}

// NewClient 从配置构造 Contents API 客户端。定位参数在 FetchManifest
// 中再作完整性检查，保证每次调用都会得到明确的 ErrMissingLocation。
func NewClient(httpClient *http.Client, cfg *config.Config) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.GithubAPIBase, "/"),
		owner:      strings.TrimSpace(cfg.GithubOwner),
		repo:       strings.TrimSpace(cfg.GithubRepo),
		branch:     strings.TrimSpace(cfg.GithubBranch),
		path:       strings.TrimSpace(cfg.ManifestPath),
		token:      strings.TrimSpace(cfg.GithubToken),
	}
}

// FetchManifest 执行一次条件拉取。etag 非空时作为 If-None-Match 前置条件；
// 上游返回 304 则视为内容未变化。304 出现在没有前置 token 的请求上属于
// 协议异常，按 UpstreamError 处理而不是静默当作命中。
func (c *Client) FetchManifest(ctx context.Context, etag string) (FetchResult, error) {
	if c.owner == "" || c.repo == "" || c.path == "" {
		return FetchResult{}, ErrMissingLocation
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.contentsURL(), nil)
	if err != nil {
		return FetchResult{}, fmt.Errorf("build github request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return FetchResult{}, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		if etag == "" {
			return FetchResult{}, &UpstreamError{
				StatusCode: resp.StatusCode,
				Body:       "304 without If-None-Match precondition",
			}
		}
		return FetchResult{Unchanged: true, ETag: etag}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return FetchResult{}, &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       truncatedBody(resp.Body),
		}
	}

	var payload contentsPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return FetchResult{}, &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       fmt.Sprintf("undecodable contents response: %v", err),
		}
	}

	if payload.Encoding != "base64" || payload.Content == "" {
		return FetchResult{}, &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       "unexpected contents response (missing base64 content)",
		}
	}

	decoded, err := base64.StdEncoding.DecodeString(normalizeBase64(payload.Content))
	if err != nil {
		return FetchResult{}, &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       fmt.Sprintf("invalid base64 content: %v", err),
		}
	}

	return FetchResult{
		Unchanged: false,
		ETag:      resp.Header.Get("ETag"),
		Content:   decoded,
	}, nil
}

// contentsURL 拼接 GET /repos/{owner}/{repo}/contents/{path}?ref={branch}。
func (c *Client) contentsURL() string {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, c.owner, c.repo, c.path)
	if c.branch != "" {
		u += "?ref=" + url.QueryEscape(c.branch)
	}
	return u
}

// normalizeBase64 去掉 Contents API 在 base64 正文中插入的换行。
func normalizeBase64(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, s)
}

func truncatedBody(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	return string(data)
}
