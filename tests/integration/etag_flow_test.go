package integration

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
)

func TestETagRevalidationFlow(t *testing.T) {
	stub := newGithubStub(t, "version: 1.16.1+3\n", `"e1"`)
	app, _ := newServiceApp(t, stub.URL, time.Minute)

	if _, err := app.Test(httptest.NewRequest("GET", "/version", nil)); err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	// 强制刷新：上游命中 If-None-Match 返回 304，版本字段保持不变。
	resp, err := app.Test(httptest.NewRequest("GET", "/version?force=1", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	payload := decodeJSON(t, resp.Body)
	if payload["source"] != "github-etag-cache" {
		t.Fatalf("304 后来源应为 github-etag-cache: %v", payload["source"])
	}
	if payload["raw"] != "1.16.1+3" {
		t.Fatalf("304 不应改变 raw: %v", payload["raw"])
	}

	requests := stub.Requests()
	if len(requests) != 2 {
		t.Fatalf("应有两次回源，实际 %d", len(requests))
	}
	if requests[0].Headers.Get("If-None-Match") != "" {
		t.Fatalf("首次回源不应携带 If-None-Match")
	}
	if requests[1].Headers.Get("If-None-Match") != `"e1"` {
		t.Fatalf("二次回源应携带已存 ETag，得到 %q", requests[1].Headers.Get("If-None-Match"))
	}
}

func TestETagFlowPicksUpNewRelease(t *testing.T) {
	stub := newGithubStub(t, "version: 1.16.1+3\n", `"e1"`)
	app, _ := newServiceApp(t, stub.URL, time.Minute)

	if _, err := app.Test(httptest.NewRequest("GET", "/version", nil)); err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	stub.SetManifest("version: 1.17.0+1\n", `"e2"`)

	resp, err := app.Test(httptest.NewRequest("GET", "/version?force=1", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	payload := decodeJSON(t, resp.Body)
	if payload["raw"] != "1.17.0+1" || payload["source"] != "github" {
		t.Fatalf("新版本应覆盖缓存: %v", payload)
	}

	// 新 ETag 生效后再次强刷应回到 304 命中。
	resp, err = app.Test(httptest.NewRequest("GET", "/version?force=1", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	payload = decodeJSON(t, resp.Body)
	if payload["source"] != "github-etag-cache" {
		t.Fatalf("新 ETag 应再次命中 304: %v", payload["source"])
	}
	if payload["raw"] != "1.17.0+1" {
		t.Fatalf("304 后 raw 应保持新版本: %v", payload["raw"])
	}
}
