package app

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cfgman "BilgiNotifier/internal/config"
	"BilgiNotifier/internal/delivery/handlers"
	"BilgiNotifier/internal/delivery/middleware"
	"BilgiNotifier/internal/domain"
	"BilgiNotifier/internal/metrics"
	"BilgiNotifier/internal/migrator"
	"BilgiNotifier/internal/queue"
	"BilgiNotifier/internal/repository/pg"
	emailsender "BilgiNotifier/internal/sender/email"
	"BilgiNotifier/internal/sender/logsink"
	"BilgiNotifier/internal/sender/rabbit"
	"BilgiNotifier/internal/service"
	"BilgiNotifier/internal/templates"
	"BilgiNotifier/internal/worker"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/redis"
	"github.com/wb-go/wbf/zlog"
)

const shutdownTimeout = 10 * time.Second

// Application основная структура приложения.
type Application struct {
	config     *cfgman.Config
	server     *ginext.Engine
	db         *dbpg.DB
	redis      *redis.Client
	publisher  *rabbit.Publisher
	templates  *templates.Store
	queue      *queue.Queue
	dispatcher *worker.Dispatcher
	service    *service.NotificationService
}

// New создает новое приложение.
func New() (*Application, error) {
	// Загружаем конфигурацию
	cfg, err := cfgman.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Инициализируем логгер
	if err := initLogger(cfg.Logging.Level); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	app := &Application{
		config: cfg,
	}

	return app, nil
}

// Run запускает приложение в зависимости от команды.
func (a *Application) Run() error {
	if len(os.Args) < 2 {
		a.printUsage()
		return fmt.Errorf("no command specified")
	}

	command := os.Args[1]

	switch command {
	case "runserver":
		return a.runServer()
	case "migrate":
		return a.runMigrate()
	case "health":
		return a.runHealthCheck()
	case "templates":
		return a.runListTemplates()
	default:
		a.printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

// printUsage печатает инструкции по использованию.
func (a *Application) printUsage() {
	fmt.Println("BilgiNotifier - очередь email уведомлений BilgiBite")
	fmt.Println()
	fmt.Println("Доступные команды:")
	fmt.Println("  runserver       - запуск HTTP сервера и воркера рассылки")
	fmt.Println("  migrate up      - накат миграций")
	fmt.Println("  migrate down    - откат последней миграции")
	fmt.Println("  migrate version - текущая версия схемы")
	fmt.Println("  health          - проверка состояния подключенных сервисов")
	fmt.Println("  templates       - список доступных шаблонов")
	fmt.Println()
	fmt.Println("Примеры:")
	fmt.Println("  <appname> runserver")
	fmt.Println("  <appname> migrate up")
	fmt.Println("  <appname> health")
}

// runHealthCheck проверяет состояние включенных подключений.
func (a *Application) runHealthCheck() error {
	fmt.Println("Running health check...")

	if a.config.Database.Enabled {
		if err := a.checkDatabase(); err != nil {
			return fmt.Errorf("database check failed: %w", err)
		}
		fmt.Println("✅ Database connection: OK")
	}

	if a.config.Redis.Enabled {
		if err := a.checkRedis(); err != nil {
			return fmt.Errorf("redis check failed: %w", err)
		}
		fmt.Println("✅ Redis connection: OK")
	}

	if a.config.Delivery.Sink == cfgman.SinkRabbitMQ {
		if err := a.checkRabbitMQ(); err != nil {
			return fmt.Errorf("rabbitmq check failed: %w", err)
		}
		fmt.Println("✅ RabbitMQ connection: OK")
	}

	fmt.Println("🎉 All health checks passed!")
	return nil
}

// checkDatabase проверяет подключение к базе данных.
func (a *Application) checkDatabase() error {
	db, err := initDatabase(a.config.Database)
	if err != nil {
		return err
	}
	defer func(Master *sql.DB) {
		_ = Master.Close()
	}(db.Master)

	return nil
}

// checkRedis проверяет подключение к Redis.
func (a *Application) checkRedis() error {
	client, err := initRedis(a.config.Redis)
	if err != nil {
		return err
	}
	return client.Close()
}

// checkRabbitMQ проверяет подключение к RabbitMQ.
func (a *Application) checkRabbitMQ() error {
	cfg := a.rabbitConfig()
	cfg.ConnectionName += "-health"
	p, err := rabbit.Dial(cfg)
	if err != nil {
		return err
	}
	return p.Close()
}

// initLogger инициализирует логгер.
func initLogger(level string) error {
	zlog.Init()

	zerologLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	err = zlog.SetLevel(zerologLevel.String())
	if err != nil {
		return err
	}

	return nil
}

// runServer запускает приложение в режиме сервера.
func (a *Application) runServer() error {
	zlog.Logger.Info().Msg("Starting BilgiNotifier server...")

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := a.initConnections(ctx); err != nil {
		return fmt.Errorf("failed to init connections: %w", err)
	}
	defer a.cleanup()
	if err := a.setupHTTPServer(); err != nil {
		return fmt.Errorf("failed to setup HTTP server: %w", err)
	}
	a.dispatcher.Start(ctx)
	defer a.stopWorker()

	addr := a.config.HTTP.GetConnectionString()
	zlog.Logger.Info().Str("address", addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           a.server,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	zlog.Logger.Info().Msg("HTTP server started, waiting for shutdown signal...")
	if err := serveHTTP(ctx, srv, ln); err != nil {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// runMigrate запускает приложение в режиме миграций.
func (a *Application) runMigrate() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("migrate command requires direction (up/down/version)")
	}

	direction := os.Args[2]

	switch direction {
	case "up":
		return a.withMigrator(func(m *migrator.Migrator) error {
			zlog.Logger.Info().Msg("Running migrations up...")
			if err := m.Up(); err != nil {
				return fmt.Errorf("migration up failed: %w", err)
			}
			zlog.Logger.Info().Msg("Migrations applied successfully")
			return nil
		})
	case "down":
		return a.withMigrator(func(m *migrator.Migrator) error {
			zlog.Logger.Info().Msg("Running migrations down...")
			if err := m.Down(); err != nil {
				return fmt.Errorf("migration down failed: %w", err)
			}
			zlog.Logger.Info().Msg("Migration rolled back successfully")
			return nil
		})
	case "version":
		return a.withMigrator(func(m *migrator.Migrator) error {
			v, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Printf("schema version: %d\n", v)
			return nil
		})
	default:
		return fmt.Errorf("unknown migrate direction: %s (use up/down/version)", direction)
	}
}

func (a *Application) withMigrator(fn func(m *migrator.Migrator) error) error {
	db, err := initDatabase(a.config.Database)
	if err != nil {
		return fmt.Errorf("failed to init database: %w", err)
	}
	defer func(Master *sql.DB) {
		_ = Master.Close()
	}(db.Master)

	m, err := migrator.NewMigrator(db.Master, a.config.Migrations.Path)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() {
		if err := m.Close(); err != nil {
			zlog.Logger.Warn().Err(err).Msg("failed to close migrator")
		}
	}()

	return fn(m)
}

// runListTemplates печатает шаблоны, которые будут доступны серверу.
func (a *Application) runListTemplates() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.config.Database.Enabled {
		db, err := initDatabase(a.config.Database)
		if err != nil {
			return fmt.Errorf("failed to init database: %w", err)
		}
		a.db = db
		defer a.cleanup()
	}
	if err := a.initTemplates(ctx); err != nil {
		return err
	}
	for _, t := range a.templates.List() {
		fmt.Printf("%-24s %s\n", t.Name, t.Subject)
	}
	return nil
}

// initConnections инициализирует подключения и сервисы.
func (a *Application) initConnections(ctx context.Context) error {
	var err error

	if a.config.Database.Enabled {
		a.db, err = initDatabase(a.config.Database)
		if err != nil {
			return fmt.Errorf("failed to init database: %w", err)
		}
	}

	if a.config.Redis.Enabled {
		a.redis, err = initRedis(a.config.Redis)
		if err != nil {
			return fmt.Errorf("failed to init redis: %w", err)
		}
	}

	if err := a.initServices(ctx); err != nil {
		return fmt.Errorf("failed to init services: %w", err)
	}

	return nil
}

// initDatabase инициализирует подключение к базе данных.
func initDatabase(cfg cfgman.DatabaseConfig) (*dbpg.DB, error) {
	opts := &dbpg.Options{
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	}

	db, err := dbpg.New(cfg.DSN, nil, opts)
	if err != nil {
		return nil, err
	}

	if err := db.Master.Ping(); err != nil {
		_ = db.Master.Close()
		return nil, err
	}

	zlog.Logger.Info().Msg("Database connection established")
	return db, nil
}

// initRedis инициализирует подключение к Redis.
func initRedis(cfg cfgman.RedisConfig) (*redis.Client, error) {
	client := redis.New(cfg.Addr, cfg.Password, cfg.DB)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	zlog.Logger.Info().Msg("Redis connection established")
	return client, nil
}

func (a *Application) rabbitConfig() rabbit.Config {
	return rabbit.Config{
		URL:            a.config.RabbitMQ.URL,
		ConnectionName: a.config.RabbitMQ.ConnectionName,
		ConnectTimeout: a.config.RabbitMQ.ConnectTimeout,
		Heartbeat:      a.config.RabbitMQ.Heartbeat,
		ExchangeName:   a.config.RabbitMQ.ExchangeName,
		QueueName:      a.config.RabbitMQ.QueueName,
		RoutingKey:     a.config.RabbitMQ.RoutingKey,
	}
}

// initTemplates регистрирует встроенные шаблоны и дочитывает шаблоны из базы, если она подключена.
func (a *Application) initTemplates(ctx context.Context) error {
	a.templates = templates.NewStore()
	if err := templates.RegisterBuiltin(a.templates); err != nil {
		return fmt.Errorf("failed to register builtin templates: %w", err)
	}
	if a.db != nil {
		n, err := templates.LoadFromRepository(ctx, a.templates, pg.NewTemplateRepo(a.db))
		if err != nil {
			return fmt.Errorf("failed to load templates from database: %w", err)
		}
		zlog.Logger.Info().Int("count", n).Msg("templates loaded from database")
	}
	zlog.Logger.Info().Strs("templates", a.templates.Names()).Msg("template catalog ready")
	return nil
}

// initSink создает канал доставки по настройке delivery.sink.
func (a *Application) initSink() (domain.DeliverySink, error) {
	switch a.config.Delivery.Sink {
	case cfgman.SinkSMTP:
		s, err := emailsender.NewSMTPSender(
			a.config.Email.Host,
			a.config.Email.Port,
			a.config.Email.Username,
			a.config.Email.Password,
			a.config.Email.From,
			a.config.Email.FromName,
			a.config.Email.UseTLS,
			a.config.Email.InsecureSkipVerify,
		)
		if err != nil {
			return nil, err
		}
		return s, nil
	case cfgman.SinkRabbitMQ:
		p, err := rabbit.Dial(a.rabbitConfig())
		if err != nil {
			return nil, err
		}
		a.publisher = p
		return p, nil
	case cfgman.SinkLog:
		return logsink.New(), nil
	default:
		return nil, fmt.Errorf("unknown delivery sink: %s", a.config.Delivery.Sink)
	}
}

// initServices инициализирует сервисы приложения.
func (a *Application) initServices(ctx context.Context) error {
	if err := a.initTemplates(ctx); err != nil {
		return err
	}

	sink, err := a.initSink()
	if err != nil {
		return fmt.Errorf("failed to init delivery sink: %w", err)
	}

	var statusStore domain.RedisRepository
	if a.redis != nil {
		statusStore = a.redis
	}
	recorder := service.NewStatusRecorder(statusStore, a.config.Redis.Expiration)

	a.queue = queue.New(a.templates, a.config.Queue.MaxAttempts)
	a.dispatcher = worker.NewDispatcher(a.queue, a.templates, sink, recorder, worker.Config{
		Interval: a.config.Queue.Interval,
		SinkName: a.config.Delivery.Sink,
	})
	a.service = service.NewNotificationService(a.queue, a.templates, a.dispatcher, recorder)

	zlog.Logger.Info().
		Str("sink", a.config.Delivery.Sink).
		Dur("interval", a.config.Queue.Interval).
		Int("max_attempts", a.config.Queue.MaxAttempts).
		Bool("status_store", recorder.Enabled()).
		Msg("Notification service initialized")
	return nil
}

// setupHTTPServer настраивает HTTP сервер.
func (a *Application) setupHTTPServer() error {
	a.server = ginext.New(gin.ReleaseMode)
	a.server.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowCredentials: true,
	}))

	a.server.Use(middleware.RequestIDMiddleware())
	a.server.Use(middleware.LoggingMiddleware())
	h := handlers.NewHandlersSet(a.service)

	group := a.server.RouterGroup.Group("notify")
	group.POST("/", h.SendNotificationHandler)
	group.GET("/:id", h.GetJobStatusHandler)
	a.server.GET("/stats", h.StatsHandler)
	a.server.GET("/templates", h.TemplatesHandler)
	a.server.GET("/metrics", gin.WrapH(metrics.Handler()))

	return nil
}

// stopWorker дожидается завершения текущего цикла рассылки.
func (a *Application) stopWorker() {
	if a.dispatcher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.dispatcher.Stop(ctx); err != nil {
		zlog.Logger.Warn().Err(err).Int("left_in_queue", a.queue.Len()).Msg("worker did not stop in time")
		return
	}
	zlog.Logger.Info().Int("left_in_queue", a.queue.Len()).Msg("Worker stopped")
}

// cleanup освобождает ресурсы.
func (a *Application) cleanup() {
	zlog.Logger.Info().Msg("Cleaning up resources...")

	if a.publisher != nil {
		_ = a.publisher.Close()
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			zlog.Logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}

	if a.db != nil {
		_ = a.db.Master.Close()
	}

	zlog.Logger.Info().Msg("Cleanup completed")
}
