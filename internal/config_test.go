package internal_test

import (
	"os"
	"testing"
	"time"

	"github.com/frahmantamala/archival-system/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestInternal(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Internal Suite")
}

func setenv(key, value string) {
	prev, had := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if had {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func validConfig() *internal.Config {
	return &internal.Config{
		Env: "development",
		Server: internal.ServerConfig{
			Port:              8080,
			AllowedOrigins:    "http://localhost:3000, http://localhost:5173",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
		},
		Database: internal.DatabaseConfig{
			Driver:          "sqlite",
			Source:          "file::memory:",
			MaxOpenConns:    5,
			MaxIdleConns:    1,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: time.Minute,
		},
		Security: internal.SecurityConfig{
			JWTAccessSecret:      "access-secret-0123456789",
			JWTRefreshSecret:     "refresh-secret-0123456789",
			AccessTokenDuration:  time.Hour,
			RefreshTokenDuration: 24 * time.Hour,
			BCryptCost:           10,
		},
		Observability: internal.ObservabilityConfig{
			Metrics: internal.MetricsConfig{Enabled: true, Path: "/metrics"},
		},
	}
}

var _ = Describe("Config", func() {
	Describe("Validate", func() {
		It("should accept a complete config", func() {
			Expect(validConfig().Validate()).To(Succeed())
		})

		It("should reject identical token secrets", func() {
			cfg := validConfig()
			cfg.Security.JWTRefreshSecret = cfg.Security.JWTAccessSecret
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("secrets must differ")))
		})

		It("should reject a refresh lifetime shorter than the access lifetime", func() {
			cfg := validConfig()
			cfg.Security.RefreshTokenDuration = 30 * time.Minute
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("refresh_token_duration")))
		})

		It("should reject more idle than open connections", func() {
			cfg := validConfig()
			cfg.Database.MaxIdleConns = 10
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("max_idle_conns")))
		})

		It("should reject an unknown driver and a short secret together", func() {
			cfg := validConfig()
			cfg.Database.Driver = "mysql"
			cfg.Security.JWTAccessSecret = "short"
			err := cfg.Validate()
			Expect(err).To(MatchError(ContainSubstring("Driver")))
			Expect(err).To(MatchError(ContainSubstring("JWTAccessSecret")))
		})
	})

	It("should split and trim allowed origins", func() {
		cfg := validConfig()
		Expect(cfg.Server.Origins()).To(Equal([]string{"http://localhost:3000", "http://localhost:5173"}))

		cfg.Server.AllowedOrigins = ""
		Expect(cfg.Server.Origins()).To(BeNil())
	})

	Describe("LoadConfigFromEnv", func() {
		BeforeEach(func() {
			setenv("DB_SOURCE", "postgres://localhost/archival")
			setenv("SECURITY_JWT_ACCESS_SECRET", "access-secret-0123456789")
			setenv("SECURITY_JWT_REFRESH_SECRET", "refresh-secret-0123456789")
		})

		It("should apply defaults", func() {
			cfg, err := internal.LoadConfigFromEnv()
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.Server.Port).To(Equal(8080))
			Expect(cfg.Database.Driver).To(Equal("postgres"))
			Expect(cfg.Database.OperationTimeout).To(Equal(5 * time.Second))
			Expect(cfg.RBAC.UniformDenial).To(BeTrue())
			Expect(cfg.Observability.Metrics.Path).To(Equal("/metrics"))
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should read nested overrides", func() {
			setenv("HTTP_PORT", "9090")
			setenv("REDIS_ADDR", "localhost:6379")
			setenv("RBAC_UNIFORM_DENIAL", "false")
			setenv("OBSERVABILITY_LOGGING_FORMAT", "json")

			cfg, err := internal.LoadConfigFromEnv()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Server.Port).To(Equal(9090))
			Expect(cfg.Redis.Addr).To(Equal("localhost:6379"))
			Expect(cfg.RBAC.UniformDenial).To(BeFalse())
			Expect(cfg.Observability.Logging.Format).To(Equal("json"))
		})

		It("should not take the metrics route from the shell PATH", func() {
			setenv("PATH", "/usr/local/bin:/usr/bin")

			cfg, err := internal.LoadConfigFromEnv()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Observability.Metrics.Path).To(Equal("/metrics"))
		})
	})
})
