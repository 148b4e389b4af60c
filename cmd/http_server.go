package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/archival-system/internal"
	"github.com/frahmantamala/archival-system/internal/auth"
	"github.com/frahmantamala/archival-system/internal/comment"
	commentPostgres "github.com/frahmantamala/archival-system/internal/comment/postgres"
	commentDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/comment"
	reportDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/report"
	taskDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/task"
	userDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/user"
	"github.com/frahmantamala/archival-system/internal/core/events"
	"github.com/frahmantamala/archival-system/internal/rbac"
	"github.com/frahmantamala/archival-system/internal/report"
	reportPostgres "github.com/frahmantamala/archival-system/internal/report/postgres"
	"github.com/frahmantamala/archival-system/internal/task"
	taskPostgres "github.com/frahmantamala/archival-system/internal/task/postgres"
	"github.com/frahmantamala/archival-system/internal/transport"
	"github.com/frahmantamala/archival-system/internal/transport/middleware"
	"github.com/frahmantamala/archival-system/internal/transport/rest"
	"github.com/frahmantamala/archival-system/internal/user"
	userPostgres "github.com/frahmantamala/archival-system/internal/user/postgres"
	"github.com/frahmantamala/archival-system/pkg/logger"
	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	Gorm     *gorm.DB
	SQL      *sqlx.DB
	Redis    *redis.Client
	Guard    *rbac.Guard
	EventBus *events.EventBus
	Router   *chi.Mux
	Logger   *slog.Logger
}

func startHTTPServer() error {
	deps, err := initializeDependencies()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deps.Logger.Info("starting HTTP server", "address", addr, "env", deps.Config.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		deps.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		deps.EventBus.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		deps.Logger.Error("server stopped with error", "error", err)
		return err
	}
	deps.Logger.Info("server stopped")
	return nil
}

func initializeDependencies() (*Dependencies, error) {
	cfg, err := loadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.LoggerWrapper()

	gormDB, sqlDB, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps := &Dependencies{Config: cfg, Gorm: gormDB, SQL: sqlDB, Logger: log}

	catalog, err := rbac.LoadCatalog(cfg.RBAC.CatalogPath)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to load role catalog: %w", err)
	}
	deps.Guard = rbac.NewGuard(rbac.NewResolver(catalog), log)

	var denylist auth.Denylist = auth.NewMemoryDenylist()
	if cfg.Redis.Addr != "" {
		client, err := auth.NewRedisClient(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		deps.Redis = client
		denylist = auth.NewRedisDenylist(client)
	} else {
		log.Warn("redis not configured, token revocation is process-local")
	}

	deps.EventBus = events.NewEventBus(log)
	task.NewEventHandler(log).RegisterEventHandlers(deps.EventBus)

	router, err := buildRouter(deps, denylist)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Router = router
	return deps, nil
}

func buildRouter(deps *Dependencies, denylist auth.Denylist) (*chi.Mux, error) {
	cfg := deps.Config
	log := deps.Logger
	timeout := cfg.Database.OperationTimeout
	base := transport.NewBaseHandler(log)

	userRepo := userPostgres.NewUserRepository(deps.Gorm, timeout)
	hasher := auth.NewBcryptHasher(cfg.Security.BCryptCost)
	tokens := auth.NewJWTTokenGenerator(cfg.Security.JWTAccessSecret, cfg.Security.JWTRefreshSecret,
		cfg.Security.AccessTokenDuration, cfg.Security.RefreshTokenDuration)

	authService := auth.NewService(userRepo, tokens, hasher, denylist, deps.Guard, log)
	userService := user.NewService(userRepo, deps.Guard, hasher, log)
	taskService := task.NewService(taskPostgres.NewTaskRepository(deps.Gorm, timeout), deps.Guard, userService, deps.EventBus, log, cfg.RBAC.UniformDenial)
	commentService := comment.NewService(commentPostgres.NewCommentRepository(deps.Gorm, timeout), taskService, userService, deps.EventBus, log)
	reportService := report.NewService(
		reportPostgres.NewReportRepository(deps.Gorm, timeout),
		reportPostgres.NewStatsReader(deps.SQL, timeout),
		deps.Guard, deps.EventBus, log, cfg.RBAC.UniformDenial,
	)

	checks := map[string]rest.CheckFunc{"database": deps.SQL.PingContext}
	if deps.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() }
	}

	opts := rest.RouterOptions{Config: cfg, Logger: log}
	if cfg.OpenAPI.ValidateRequests {
		doc, err := middleware.LoadOpenAPI(context.Background(), cfg.OpenAPI.SpecPath)
		if err != nil {
			return nil, err
		}
		validator, err := middleware.OpenAPIValidator(doc, log)
		if err != nil {
			return nil, err
		}
		opts.OpenAPIValidator = validator
	}

	return rest.NewRouter(rest.Handlers{
		Auth:    auth.NewHandler(base, authService),
		RBAC:    auth.NewRBACAuthorization(deps.Guard, log),
		User:    user.NewHandler(base, userService),
		Task:    task.NewHandler(base, taskService),
		Comment: comment.NewHandler(base, commentService),
		Report:  report.NewHandler(base, reportService),
		Health:  rest.NewHealthHandler(checks),
	}, opts), nil
}

// Close releases the connections in reverse order of acquisition.
func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("redis close error", "error", err)
		}
	}
	if d.SQL != nil {
		if err := d.SQL.Close(); err != nil {
			d.Logger.Error("database close error", "error", err)
		}
	}
}

// initDB opens one connection pool and shares it between gorm and sqlx.
// Postgres goes through the pgx stdlib driver; sqlite is for local runs and
// is migrated with gorm since the SQL migrations target postgres.
func initDB(cfg internal.DatabaseConfig) (*gorm.DB, *sqlx.DB, error) {
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
	}

	switch cfg.Driver {
	case "sqlite":
		gormDB, err := gorm.Open(sqlite.Open(cfg.Source), gormCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB, err := gormDB.DB()
		if err != nil {
			return nil, nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		if err := autoMigrate(gormDB); err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
		return gormDB, sqlx.NewDb(sqlDB, "sqlite3"), nil

	default:
		const driver = "pgx"
		dbConn, err := sqlx.Connect(driver, cfg.Source)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
		}
		dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
		dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
		dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

		gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: dbConn.DB}), gormCfg)
		if err != nil {
			_ = dbConn.Close()
			return nil, nil, fmt.Errorf("open gorm over pgx: %w", err)
		}
		return gormDB, dbConn, nil
	}
}

func autoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&userDatamodel.User{},
		&taskDatamodel.Task{},
		&commentDatamodel.Comment{},
		&reportDatamodel.Report{},
		&reportDatamodel.ReportTemplate{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
