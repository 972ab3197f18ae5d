package integration

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
)

// 冷缓存下同时涌入的请求应收敛为一次上游回源（singleflight）。
func TestConcurrentRequestsSingleUpstreamFetch(t *testing.T) {
	stub := newGithubStub(t, "version: 1.16.1+3\n", `"e1"`)
	stub.SetDelay(100 * time.Millisecond)
	app, _ := newServiceApp(t, stub.URL, time.Minute)

	const workers = 12
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	statuses := make(chan int, workers)

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			resp, err := app.Test(httptest.NewRequest("GET", "/version", nil))
			if err != nil {
				errs <- err
				return
			}
			statuses <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(errs)
	close(statuses)

	for err := range errs {
		t.Fatalf("并发请求失败: %v", err)
	}
	for status := range statuses {
		if status != fiber.StatusOK {
			t.Fatalf("并发请求应全部成功，得到 %d", status)
		}
	}

	if n := len(stub.Requests()); n != 1 {
		t.Fatalf("并发请求应只触发一次回源，实际 %d 次", n)
	}
}
