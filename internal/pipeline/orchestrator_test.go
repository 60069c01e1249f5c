package pipeline_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"optimizer.app/relay/common/logger"
	"optimizer.app/relay/internal/backend"
	"optimizer.app/relay/internal/metrics"
	"optimizer.app/relay/internal/model"
	"optimizer.app/relay/internal/pipeline"
)

func newRegistry(pre *mockAdapter, backends ...*mockAdapter) *backend.Registry {
	adapters := make([]backend.Adapter, len(backends))
	for i, b := range backends {
		adapters[i] = b
	}
	reg, err := backend.NewRegistry(pre, adapters)
	Expect(err).NotTo(HaveOccurred())
	return reg
}

func ids(results []model.GenerationResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.BackendID
	}
	return out
}

var _ = Describe("Orchestrator", func() {
	var (
		ctx    context.Context
		pre    *mockAdapter
		modelA *mockAdapter
		modelB *mockAdapter
		orch   *pipeline.Orchestrator
	)

	BeforeEach(func() {
		ctx = context.Background()
		pre = newMockAdapter("cleaner")
		pre.generateFn = func(context.Context, string) (string, error) {
			return "sort a list of integers", nil
		}
		modelA = newMockAdapter("modelA")
		modelB = newMockAdapter("modelB")
		orch = pipeline.NewOrchestrator(newRegistry(pre, modelA, modelB), pipeline.Config{MaxParallel: 4})
	})

	It("produces code and explanation for a single backend", func() {
		modelA.generateFn = func(context.Context, string) (string, error) {
			return "def sort(x): return sorted(x)", nil
		}
		modelA.explainFn = func(context.Context, string) (string, error) {
			return "Calls built-in sort.", nil
		}

		results := orch.Run(ctx, model.GenerationRequest{
			RawQuestion:    "sort a list",
			TargetLanguage: "Python",
			BackendIDs:     []string{"modelA"},
		})

		Expect(results).To(HaveLen(1))
		Expect(results[0].BackendID).To(Equal("modelA"))
		Expect(*results[0].Code).To(Equal("def sort(x): return sorted(x)"))
		Expect(*results[0].Explanation).To(Equal("Calls built-in sort."))
		Expect(results[0].Error).To(BeNil())
	})

	It("builds the generation and explanation instructions", func() {
		modelA.generateFn = func(context.Context, string) (string, error) { return "CODE", nil }

		orch.Run(ctx, model.GenerationRequest{
			RawQuestion:    "sort a list",
			TargetLanguage: "Go",
			BackendIDs:     []string{"modelA"},
		})

		Expect(modelA.generateInstructions).To(Equal([]string{
			pipeline.GenerationInstruction("Go", "sort a list of integers"),
		}))
		Expect(modelA.generateInstructions[0]).To(ContainSubstring("provide optimized Go code for the problem: sort a list of integers."))
		Expect(modelA.explainInstructions).To(Equal([]string{pipeline.ExplanationInstruction("CODE")}))
		Expect(modelA.explainInstructions[0]).To(ContainSubstring("\n\nCODE\n\n"))
	})

	It("isolates a failing backend from its siblings", func() {
		modelA.generateFn = func(context.Context, string) (string, error) {
			return "", model.NewError(model.ErrorKindBackend, "modelA", "connection refused")
		}

		results := orch.Run(ctx, model.GenerationRequest{
			RawQuestion:    "q",
			TargetLanguage: "Python",
			BackendIDs:     []string{"modelA", "modelB"},
		})

		Expect(ids(results)).To(Equal([]string{"modelA", "modelB"}))
		Expect(results[0].Error.Kind).To(Equal(model.ErrorKindBackend))
		Expect(results[0].Code).To(BeNil())
		Expect(modelA.explainCalls()).To(BeZero())

		Expect(results[1].Error).To(BeNil())
		Expect(*results[1].Code).To(Equal("code from modelB"))
		Expect(*results[1].Explanation).To(Equal("explanation from modelB"))
	})

	It("aborts every slot when preprocessing fails", func() {
		pre.generateFn = func(context.Context, string) (string, error) {
			return "", errors.New("401 unauthorized")
		}
		before := testutil.ToFloat64(metrics.Runs.WithLabelValues(pipeline.RunOutcomePreprocessFailed))

		results := orch.Run(ctx, model.GenerationRequest{
			RawQuestion:    "q",
			TargetLanguage: "Python",
			BackendIDs:     []string{"modelA", "modelB", "ghost"},
		})

		Expect(ids(results)).To(Equal([]string{"modelA", "modelB", "ghost"}))
		for _, r := range results {
			Expect(r.Error.Kind).To(Equal(model.ErrorKindPreprocess))
			Expect(r.Code).To(BeNil())
		}
		Expect(modelA.generateCalls()).To(BeZero())
		Expect(modelB.generateCalls()).To(BeZero())
		Expect(testutil.ToFloat64(metrics.Runs.WithLabelValues(pipeline.RunOutcomePreprocessFailed))).To(Equal(before + 1))
	})

	It("keeps the code when the explanation fails", func() {
		modelA.explainFn = func(context.Context, string) (string, error) {
			return "", model.NewError(model.ErrorKindTimeout, "modelA", "no response within 60s")
		}

		results := orch.Run(ctx, model.GenerationRequest{
			RawQuestion:    "q",
			TargetLanguage: "Python",
			BackendIDs:     []string{"modelA"},
		})

		Expect(*results[0].Code).To(Equal("code from modelA"))
		Expect(results[0].Explanation).To(BeNil())
		Expect(results[0].Error.Kind).To(Equal(model.ErrorKindTimeout))
	})

	It("marks unknown backends without affecting the rest", func() {
		results := orch.Run(ctx, model.GenerationRequest{
			RawQuestion:    "q",
			TargetLanguage: "Python",
			BackendIDs:     []string{"ghost", "modelB"},
		})

		Expect(results[0].Error.Kind).To(Equal(model.ErrorKindUnknownBackend))
		Expect(results[0].Error.BackendID).To(Equal("ghost"))
		Expect(results[1].Error).To(BeNil())
	})

	It("preserves order and length for repeated ids", func() {
		requested := []string{"modelB", "modelA", "modelB"}

		results := orch.Run(ctx, model.GenerationRequest{
			RawQuestion:    "q",
			TargetLanguage: "Python",
			BackendIDs:     requested,
		})

		Expect(ids(results)).To(Equal(requested))
		Expect(pre.generateCalls()).To(Equal(1))
	})

	It("converts a panicking backend into a backend error", func() {
		modelA.generateFn = func(context.Context, string) (string, error) {
			panic("nil map")
		}

		results := orch.Run(ctx, model.GenerationRequest{
			RawQuestion:    "q",
			TargetLanguage: "Python",
			BackendIDs:     []string{"modelA", "modelB"},
		})

		Expect(results[0].Error.Kind).To(Equal(model.ErrorKindBackend))
		Expect(results[0].Error.Message).To(ContainSubstring("nil map"))
		Expect(results[1].Error).To(BeNil())
	})

	It("runs backends concurrently up to the limit", func() {
		var inFlight, peak atomic.Int32
		slow := func(context.Context, string) (string, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(30 * time.Millisecond)
			inFlight.Add(-1)
			return "code", nil
		}
		backends := make([]*mockAdapter, 6)
		requested := make([]string, 6)
		for i := range backends {
			backends[i] = newMockAdapter(string(rune('a' + i)))
			backends[i].generateFn = slow
			requested[i] = backends[i].id
		}
		orch = pipeline.NewOrchestrator(newRegistry(pre, backends...), pipeline.Config{MaxParallel: 3})

		results := orch.Run(ctx, model.GenerationRequest{
			RawQuestion:    "q",
			TargetLanguage: "Python",
			BackendIDs:     requested,
		})

		Expect(ids(results)).To(Equal(requested))
		Expect(peak.Load()).To(BeNumerically(">", 1))
		Expect(peak.Load()).To(BeNumerically("<=", 3))
	})

	It("reuses a run id from the context", func() {
		var seen *int64
		modelA.generateFn = func(ctx context.Context, _ string) (string, error) {
			seen = logger.GetLogFields(ctx).RunID
			return "code", nil
		}
		runCtx := logger.WithLogFields(ctx, logger.LogFields{RunID: logger.Ptr(int64(42))})

		orch.Run(runCtx, model.GenerationRequest{
			RawQuestion:    "q",
			TargetLanguage: "Python",
			BackendIDs:     []string{"modelA"},
		})

		Expect(seen).NotTo(BeNil())
		Expect(*seen).To(Equal(int64(42)))
	})

	It("classifies results when asked", func() {
		modelA.generateFn = func(_ context.Context, instruction string) (string, error) {
			switch {
			case instruction == pipeline.TimeComplexityInstruction("Model modelA", "code"):
				return "O(n log n)", nil
			case instruction == pipeline.SpaceComplexityInstruction("Model modelA", "code"):
				return "O(n)", nil
			default:
				return "code", nil
			}
		}

		results := orch.Run(ctx, model.GenerationRequest{
			RawQuestion:    "q",
			TargetLanguage: "Python",
			BackendIDs:     []string{"modelA"},
			Classify:       true,
		})

		Expect(results[0].TimeComplexity.Rank).To(Equal(model.Rank(4)))
		Expect(results[0].SpaceComplexity.Rank).To(Equal(model.Rank(3)))
		Expect(modelA.generateCalls()).To(Equal(3))
	})
})

var _ = Describe("End-to-end scenario with a transport failure", func() {
	It("returns the failure and the success in request order", func() {
		pre := newMockAdapter("cleaner")
		a := newMockAdapter("A")
		b := newMockAdapter("B")
		a.generateFn = func(context.Context, string) (string, error) {
			return "", errors.New("dial tcp 10.0.0.1:443: connect: connection refused")
		}
		orch := pipeline.NewOrchestrator(newRegistry(pre, a, b), pipeline.Config{})

		results := orch.Run(context.Background(), model.GenerationRequest{
			RawQuestion:    "reverse a string",
			TargetLanguage: "Java",
			BackendIDs:     []string{"A", "B"},
		})

		Expect(ids(results)).To(Equal([]string{"A", "B"}))
		Expect(results[0].Error.Kind).To(Equal(model.ErrorKindBackend))
		Expect(results[0].Error.Message).To(ContainSubstring("connection refused"))
		Expect(results[1].Error).To(BeNil())
		Expect(results[1].Code).NotTo(BeNil())
		Expect(results[1].Explanation).NotTo(BeNil())
	})
})
