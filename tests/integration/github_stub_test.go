package integration

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/version-check/version-check/internal/cache"
	"github.com/version-check/version-check/internal/config"
	"github.com/version-check/version-check/internal/github"
	"github.com/version-check/version-check/internal/server"
)

// githubStub 模拟 Contents API：返回 base64 信封、签发固定 ETag，
// 并在 If-None-Match 命中时返回 304。供集成测试复用。
type githubStub struct {
	server   *http.Server
	listener net.Listener
	URL      string

	mu        sync.Mutex
	requests  []RecordedRequest
	manifest  string
	etag      string
	failCode  int
	respDelay time.Duration
}

// RecordedRequest 捕获每次请求的方法/路径/Headers，便于断言回源行为。
type RecordedRequest struct {
	Method  string
	Path    string
	Headers http.Header
}

func newGithubStub(t *testing.T, manifest, etag string) *githubStub {
	t.Helper()

	stub := &githubStub{manifest: manifest, etag: etag}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("unable to start github stub listener: %v", err)
	}
	srv := &http.Server{Handler: http.HandlerFunc(stub.handle)}

	stub.server = srv
	stub.listener = listener
	stub.URL = "http://" + listener.Addr().String()

	go func() {
		_ = srv.Serve(listener)
	}()

	t.Cleanup(stub.Close)
	return stub
}

func (s *githubStub) Close() {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if s.server != nil {
		_ = s.server.Shutdown(ctx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *githubStub) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method:  r.Method,
		Path:    r.URL.Path,
		Headers: cloneHeader(r.Header),
	})
	manifest := s.manifest
	etag := s.etag
	failCode := s.failCode
	delay := s.respDelay
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if failCode != 0 {
		w.WriteHeader(failCode)
		_, _ = w.Write([]byte(`{"message":"stub failure"}`))
		return
	}

	if etag != "" && r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if etag != "" {
		w.Header().Set("ETag", etag)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"content":  base64.StdEncoding.EncodeToString([]byte(manifest)),
		"encoding": "base64",
	})
}

// SetManifest 更新清单内容与对应的 ETag，模拟上游发布新版本。
func (s *githubStub) SetManifest(manifest, etag string) {
	s.mu.Lock()
	s.manifest = manifest
	s.etag = etag
	s.mu.Unlock()
}

// SetFailure 让后续请求返回指定状态码；0 表示恢复正常。
func (s *githubStub) SetFailure(code int) {
	s.mu.Lock()
	s.failCode = code
	s.mu.Unlock()
}

// SetDelay 为后续响应注入固定延迟，用于并发收敛测试。
func (s *githubStub) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.respDelay = d
	s.mu.Unlock()
}

func (s *githubStub) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]RecordedRequest, len(s.requests))
	copy(result, s.requests)
	return result
}

func cloneHeader(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for k, values := range src {
		cp := make([]string, len(values))
		copy(cp, values)
		dst[k] = cp
	}
	return dst
}

// newServiceApp 按生产顺序组装 config → 客户端 → 缓存 → Fiber 应用。
func newServiceApp(t *testing.T, stubURL string, ttl time.Duration) (*fiber.App, *cache.VersionCache) {
	t.Helper()

	cfg := &config.Config{
		ListenPort:      5000,
		GithubOwner:     "acme",
		GithubRepo:      "mobile-app",
		GithubBranch:    "main",
		ManifestPath:    "pubspec.yaml",
		GithubAPIBase:   stubURL,
		CacheTTL:        config.Duration(ttl),
		UpstreamTimeout: config.Duration(5 * time.Second),
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	httpClient := server.NewUpstreamClient(cfg)
	fetcher := github.NewClient(httpClient, cfg)
	versionCache := cache.New(fetcher, cfg.CacheTTL.DurationValue(), logger)

	app, err := server.NewApp(server.AppOptions{Logger: logger, Cache: versionCache})
	if err != nil {
		t.Fatalf("构建应用失败: %v", err)
	}
	return app, versionCache
}

func decodeJSON(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	return payload
}
