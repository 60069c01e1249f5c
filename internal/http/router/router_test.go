package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"optimizer.app/relay/internal/backend"
	"optimizer.app/relay/internal/http/middleware"
	"optimizer.app/relay/internal/http/router"
	"optimizer.app/relay/internal/pipeline"
)

type echoAdapter struct {
	id string
}

func (e echoAdapter) ID() string          { return e.id }
func (e echoAdapter) DisplayName() string { return "Echo " + e.id }
func (e echoAdapter) Model() string       { return e.id }

func (e echoAdapter) Generate(_ context.Context, instruction string) (string, error) {
	if strings.HasPrefix(instruction, "As a software engineer, analyze") {
		return "O(n)", nil
	}
	return "code:" + e.id, nil
}

func (e echoAdapter) Explain(context.Context, string) (string, error) {
	return "explained:" + e.id, nil
}

var _ = Describe("SetupRoutes", func() {
	var engine *gin.Engine

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		registry, err := backend.NewRegistry(echoAdapter{id: "cleaner"}, []backend.Adapter{
			echoAdapter{id: "a"},
			echoAdapter{id: "b"},
		})
		Expect(err).NotTo(HaveOccurred())

		engine = gin.New()
		engine.Use(middleware.Recovery(), middleware.Logger(), middleware.Metrics())
		router.SetupRoutes(engine, pipeline.NewOrchestrator(registry, pipeline.Config{MaxParallel: 2}), registry, router.RouterConfig{
			MetricsEnabled:   true,
			MaxQuestionChars: 4000,
			RateLimiter:      middleware.NewMemoryLimiter(2, time.Minute),
			RateLimitWindow:  time.Minute,
		})
	})

	do := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	It("serves health", func() {
		w := do(http.MethodGet, "/health", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"status":"ok"}`))
	})

	It("serves prometheus metrics", func() {
		w := do(http.MethodGet, "/metrics", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring("go_goroutines"))
	})

	It("lists backends and languages", func() {
		w := do(http.MethodGet, "/api/v1/backends", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`[
			{"id":"a","display_name":"Echo a","model":"a"},
			{"id":"b","display_name":"Echo b","model":"b"}
		]`))

		w = do(http.MethodGet, "/api/v1/languages", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	It("runs a generation end to end", func() {
		w := do(http.MethodPost, "/api/v1/generate", map[string]any{
			"question":    "sort a list",
			"language":    "Python",
			"backend_ids": []string{"b", "a"},
			"classify":    true,
		})

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp struct {
			Columns []struct {
				BackendID string `json:"backend_id"`
				Status    string `json:"status"`
				Result    struct {
					Code        string `json:"code"`
					Explanation string `json:"explanation"`
				} `json:"result"`
			} `json:"columns"`
			Chart []struct {
				BackendID string `json:"backend_id"`
				TimeRank  int    `json:"time_rank"`
			} `json:"chart"`
		}
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Columns).To(HaveLen(2))
		Expect(resp.Columns[0].BackendID).To(Equal("b"))
		Expect(resp.Columns[0].Result.Code).To(Equal("code:b"))
		Expect(resp.Columns[0].Result.Explanation).To(Equal("explained:b"))
		Expect(resp.Columns[1].Status).To(Equal("ok"))
		Expect(resp.Chart).To(HaveLen(2))
		Expect(resp.Chart[0].TimeRank).To(Equal(3))
	})

	It("rate limits the generation endpoint only", func() {
		body := map[string]any{"question": "q", "language": "Go", "backend_ids": []string{"a"}}
		Expect(do(http.MethodPost, "/api/v1/generate", body).Code).To(Equal(http.StatusOK))
		Expect(do(http.MethodPost, "/api/v1/generate", body).Code).To(Equal(http.StatusOK))
		Expect(do(http.MethodPost, "/api/v1/generate", body).Code).To(Equal(http.StatusTooManyRequests))
		Expect(do(http.MethodGet, "/api/v1/backends", nil).Code).To(Equal(http.StatusOK))
	})

	It("renders unknown routes as JSON 404", func() {
		w := do(http.MethodGet, "/api/v1/nope", nil)
		Expect(w.Code).To(Equal(http.StatusNotFound))
		Expect(w.Body.String()).To(MatchJSON(`{"error":"not found"}`))
	})
})
