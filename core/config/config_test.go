package config_test

import (
	"os"
	"time"

	"optimizer.app/relay/core/config"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func setEnv(key, value string) {
	prev, had := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if had {
			_ = os.Setenv(key, prev)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

var _ = Describe("Load", func() {
	BeforeEach(func() {
		// Anything but "development" skips .env loading.
		setEnv("OPTIMIZER_ENV", "test")
	})

	It("applies defaults", func() {
		cfg, err := config.Load(config.ServiceTypeServer)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Port).To(Equal("8080"))
		Expect(cfg.BackendsFile).To(Equal("config/backends.yaml"))
		Expect(cfg.MetricsEnabled).To(BeTrue())
		Expect(cfg.Pipeline.CallTimeout).To(Equal(60 * time.Second))
		Expect(cfg.Pipeline.MaxParallel).To(Equal(4))
		Expect(cfg.Pipeline.MaxQuestionChars).To(Equal(4000))
		Expect(cfg.RateLimit.RequestsPerMinute).To(Equal(20))
		Expect(cfg.RateLimit.UsesRedis()).To(BeFalse())
		Expect(cfg.OTel.Enabled()).To(BeFalse())
		Expect(cfg.IsProduction()).To(BeFalse())
		Expect(cfg.IsDevelopment()).To(BeFalse())
	})

	It("reads overrides from the environment", func() {
		setEnv("PORT", "9090")
		setEnv("CALL_TIMEOUT", "15s")
		setEnv("MAX_PARALLEL_BACKENDS", "8")
		setEnv("REDIS_URL", "redis://localhost:6379/1")
		setEnv("METRICS_ENABLED", "false")
		setEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")

		cfg, err := config.Load(config.ServiceTypeServer)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Port).To(Equal("9090"))
		Expect(cfg.Pipeline.CallTimeout).To(Equal(15 * time.Second))
		Expect(cfg.Pipeline.MaxParallel).To(Equal(8))
		Expect(cfg.RateLimit.UsesRedis()).To(BeTrue())
		Expect(cfg.MetricsEnabled).To(BeFalse())
		Expect(cfg.OTel.Enabled()).To(BeTrue())
	})

	It("keeps the default when a value does not parse", func() {
		setEnv("CALL_TIMEOUT", "soon")
		setEnv("MAX_PARALLEL_BACKENDS", "many")

		cfg, err := config.Load(config.ServiceTypeCLI)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Pipeline.CallTimeout).To(Equal(60 * time.Second))
		Expect(cfg.Pipeline.MaxParallel).To(Equal(4))
	})

	It("rejects a non-positive call timeout", func() {
		setEnv("CALL_TIMEOUT", "0s")
		_, err := config.Load(config.ServiceTypeServer)
		Expect(err).To(MatchError(ContainSubstring("CALL_TIMEOUT")))
	})

	It("rejects zero parallelism", func() {
		setEnv("MAX_PARALLEL_BACKENDS", "0")
		_, err := config.Load(config.ServiceTypeServer)
		Expect(err).To(MatchError(ContainSubstring("MAX_PARALLEL_BACKENDS")))
	})

	It("disables rate limiting at zero", func() {
		setEnv("RATE_LIMIT_PER_MINUTE", "0")
		setEnv("REDIS_URL", "redis://localhost:6379/1")
		cfg, err := config.Load(config.ServiceTypeServer)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.RateLimit.Enabled()).To(BeFalse())
		Expect(cfg.RateLimit.UsesRedis()).To(BeFalse())
	})
})
