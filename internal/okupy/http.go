// Пакет okupy предоставляет HTTP-слой управления учетными записями
// сообщества: вход через каталог LDAP, регистрацию с активацией по email
// и хранилище состояния OpenID-провайдера.
//
// Основные возможности:
//   - Вход по учетным данным каталога с локальной зеркальной записью.
//   - Регистрация через очередь заявок и письмо со ссылкой активации.
//   - Заведение записи в каталоге при переходе по ссылке активации.
//   - Периодическая очистка устаревших ассоциаций и nonce OpenID.
package okupy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/aisa-it/okupy/okupy.go/internal/okupy/config"
	"github.com/aisa-it/okupy/okupy.go/internal/okupy/cronmanager"
	"github.com/aisa-it/okupy/okupy.go/internal/okupy/directory"
	"github.com/aisa-it/okupy/okupy.go/internal/okupy/notifications"
	"github.com/aisa-it/okupy/okupy.go/internal/okupy/openidstore"
)

type Services struct {
	db           *gorm.DB
	cfg          *config.Config
	dir          directory.Directory
	emailService notifications.Mailer
	openidStore  *openidstore.Store
}

var appVersion string

// Notification - уведомление пользователю в теле успешного ответа.
type Notification struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// ServerHeader middleware adds a `Server` header to the response.
func ServerHeader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderServer, "okupy")
		return next(c)
	}
}

func Server(db *gorm.DB, cfg *config.Config, version string) {
	appVersion = version

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		// Ignore 404
		if code == http.StatusNotFound {
			c.NoContent(http.StatusNotFound)
			return
		}
		slog.Error("Unhandled error in endpoint", "url", c.Request().URL, "err", err)
		EError(c, nil)
	}

	ld := directory.InitLDAP(cfg.LdapURL, cfg.LdapBindUser, cfg.LdapBindPassword, cfg.LdapOrganization)
	es := notifications.NewEmailService(cfg)

	s := &Services{
		db:           db,
		cfg:          cfg,
		dir:          ld,
		emailService: es,
		openidStore:  openidstore.NewStore(db),
	}

	jobRegistry := cronmanager.JobRegistry{
		"nonce_clean": cronmanager.Job{
			Func: func() {
				removed, err := s.openidStore.CleanupNonces()
				if err != nil {
					slog.Error("Nonce cleanup", "err", err)
					return
				}
				slog.Info("Nonce cleanup", "removed", removed)
			},
			Schedule: "0 1 * * *", // daily at 01:00
		},
		"associations_clean": cronmanager.Job{
			Func: func() {
				removed, err := s.openidStore.CleanupAssociations()
				if err != nil {
					slog.Error("Associations cleanup", "err", err)
					return
				}
				slog.Info("Associations cleanup", "removed", removed)
			},
			Schedule: "30 1 * * *", // daily at 01:30
		},
	}

	cronManager := cronmanager.NewCronManager(jobRegistry)
	cronManager.LoadJobs()
	cronManager.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down gracefully, press Ctrl+C again to force")
		cronManager.Stop()
		es.Stop()
		os.Exit(0)
	}()

	// Global middlewares
	e.Use(ServerHeader)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level:     9,
		MinLength: 2048,
	}))
	e.Use(echoprometheus.NewMiddleware("okupy"))
	e.Pre(middleware.AddTrailingSlash())

	e.Validator = NewRequestValidator()

	s.AddAccountServices(e)
	s.AddAuthenticationServices(e)

	// Health endpoint
	e.GET("/_health/", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// Prometheus metrics
	go func() {
		bootTimeGauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "okupy",
			Name:      "boot_time",
			Help:      "Server startup time",
		})
		bootTimeGauge.Set(float64(time.Now().UnixMilli()))

		if err := prometheus.Register(bootTimeGauge); err != nil {
			slog.Error("Register boot time gauge", "err", err)
			os.Exit(1)
		}

		metrics := echo.New()
		metrics.HideBanner = true
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(":2112"); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server fail", "err", err)
		}
	}()

	if err := e.Start(":8080"); err != nil {
		slog.Error("Server fail", "err", err)
	}
}
