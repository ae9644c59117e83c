// Package server wires the hour bank API together: credential store, mail,
// token codec, PIN attempt limiter and the HTTP server, and runs it until a
// shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/hourbank/internal/logging"
	"github.com/dmitrijs2005/hourbank/internal/server/auth"
	"github.com/dmitrijs2005/hourbank/internal/server/config"
	"github.com/dmitrijs2005/hourbank/internal/server/limiter"
	"github.com/dmitrijs2005/hourbank/internal/server/mail"
	"github.com/dmitrijs2005/hourbank/internal/server/rest"
	"github.com/dmitrijs2005/hourbank/internal/server/services"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config *config.Config
	logger logging.Logger
	store  *Store
	redis  *redis.Client
	http   *rest.Server
}

func NewApp(ctx context.Context, c *config.Config, out io.Writer) (*App, error) {

	logger := logging.New(out, c.DevMode)

	store, err := OpenStore(ctx, c, c.AutoMigrate)
	if err != nil {
		return nil, err
	}
	if store.DB == nil {
		logger.Warn(ctx, "using in-memory credential store; data is lost on exit")
	}

	app := &App{config: c, logger: logger, store: store}

	notifier, err := newNotifier(c, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	codec, err := auth.NewCodec([]byte(c.LoginTokenSecret), []byte(c.SessionTokenSecret))
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("token codec error: %w", err)
	}

	var opts []services.AuthOption
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			logger.Warn(ctx, "redis unreachable; pin attempts are not limited until it is back", "error", err)
		}
		opts = append(opts, services.WithAttemptLimiter(limiter.NewPinAttempts(app.redis, c.MaxPinAttempts, c.PinAttemptWindow)))
	}

	svc := services.NewAuthService(store.Pool, store.Manager, codec, notifier, logger, services.OptionsFromConfig(c), opts...)

	app.http = rest.NewServer(c.HTTPAddr, logger, svc, rest.Options{
		CORSOrigins:      c.CORSOrigins,
		RateLimitMax:     c.RateLimitMax,
		AuthRateLimitMax: c.AuthRateLimitMax,
		RateLimitWindow:  c.RateLimitWindow,
		RequestTimeout:   c.RequestTimeout,
		DevMode:          c.DevMode,
	})

	return app, nil
}

func newNotifier(c *config.Config, logger logging.Logger) (mail.Notifier, error) {
	var sender mail.Sender

	switch c.MailProvider {
	case config.MailProviderLog:
		return mail.NewLogNotifier(logger, c.ResetURLBase), nil
	case config.MailProviderMailgun:
		sender = mail.NewMailgunSender(c.MailgunDomain, c.MailgunAPIKey, c.MailgunAPIBase)
	case config.MailProviderSMTP:
		sender = mail.NewSMTPSender(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword)
	default:
		return nil, fmt.Errorf("unknown mail provider %q", c.MailProvider)
	}

	m, err := mail.NewMailer(sender, mail.Options{
		From:          c.MailFrom,
		ResetURLBase:  c.ResetURLBase,
		PinTTL:        c.PinTTL,
		ResetTokenTTL: c.ResetTokenTTL,
		Timeout:       c.MailTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("mailer init error: %w", err)
	}
	return m, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases every resource.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	err := app.http.Run(ctx)
	app.Close()

	app.logger.Info(ctx, "App stopped")
	return err
}

func (app *App) Close() {
	if app.redis != nil {
		_ = app.redis.Close()
		app.redis = nil
	}
	if app.store != nil {
		if err := app.store.Close(); err != nil {
			app.logger.Error(context.Background(), "db close failed", "error", err)
		}
		app.store = nil
	}
}
