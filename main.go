package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"food-delivery/config"
	"food-delivery/db"
	"food-delivery/logging"
	"food-delivery/metrics"
	"food-delivery/notifier"
	"food-delivery/services"
	"food-delivery/web"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	log := logging.New(cfg.Log)
	if log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Check for migrate subcommand
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(ctx, cfg, log)
		return
	}

	conn, err := db.Open(ctx, cfg.DB)
	if err != nil {
		log.WithError(err).Fatal("db")
	}
	defer db.Close(conn)

	if cfg.AutoMigrate {
		if err := applyMigrations(ctx, conn, log, false); err != nil {
			log.WithError(err).Fatal("migrate")
		}
	}

	dispatcher := notifier.NewDispatcher(buildNotifier(ctx, cfg, log), log, cfg.NotifyTimeout)
	uploader, err := services.NewUploader(cfg.HTTP.UploadDir, cfg.HTTP.UploadURLPrefix)
	if err != nil {
		log.WithError(err).Fatal("uploads")
	}

	router := web.NewRouter(web.Deps{
		Menu:            services.NewMenuService(conn),
		Orders:          services.NewOrderService(conn, dispatcher, log),
		Images:          uploader,
		DB:              conn,
		Log:             log,
		PublicDir:       cfg.HTTP.PublicDir,
		UploadURLPrefix: cfg.HTTP.UploadURLPrefix,
	})
	srv := &http.Server{
		Addr:    cfg.HTTP.Addr(),
		Handler: metrics.InstrumentHandler(router),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()
	base := "http://localhost" + cfg.HTTP.Addr()
	log.Infof("Server running on %s", base)
	log.Infof("Customer page: %s/", base)
	log.Infof("Admin page: %s/admin", base)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	// In-flight order notifications finish before the pool closes.
	dispatcher.Wait()
}

func runMigrate(ctx context.Context, cfg *config.Config, log *logrus.Logger) {
	conn, err := db.Open(ctx, cfg.DB)
	if err != nil {
		log.WithError(err).Fatal("db")
	}
	defer db.Close(conn)

	if err := applyMigrations(ctx, conn, log, true); err != nil {
		db.Close(conn)
		log.WithError(err).Fatal("migrate")
	}
}

// buildNotifier picks the mail backend from MAIL_DRIVER and adds the Telegram
// admin chat when it is configured. Misconfiguration degrades to log-only.
func buildNotifier(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) notifier.Notifier {
	var out notifier.Multi

	switch cfg.Mail.Driver {
	case "smtp":
		if cfg.Mail.SMTPUser == "" || cfg.Mail.To == "" {
			log.Warn("SMTP_USER or MAIL_TO not set; order emails are only logged")
			out = append(out, notifier.Log{Logger: log})
			break
		}
		out = append(out, notifier.Email{Mailer: notifier.NewSMTPMailer(notifier.SMTPConfig{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			Username: cfg.Mail.SMTPUser,
			Password: cfg.Mail.SMTPPassword,
			From:     cfg.Mail.From,
			To:       cfg.Mail.To,
		})})
	case "ses":
		m, err := notifier.NewSESMailer(ctx, notifier.SESConfig{
			Region:          cfg.Mail.AWSRegion,
			AccessKeyID:     cfg.Mail.AWSAccessKeyID,
			SecretAccessKey: cfg.Mail.AWSSecretAccessKey,
			From:            cfg.Mail.From,
			To:              cfg.Mail.To,
		})
		if err != nil {
			log.WithError(err).Warn("ses unavailable; order emails are only logged")
			out = append(out, notifier.Log{Logger: log})
			break
		}
		out = append(out, notifier.Email{Mailer: m})
	default:
		out = append(out, notifier.Log{Logger: log})
	}

	if cfg.Telegram.Enabled() {
		tg, err := notifier.NewTelegram(cfg.Telegram.Token, cfg.Telegram.AdminChatID)
		if err != nil {
			log.WithError(err).Warn("telegram admin notifications disabled")
		} else {
			out = append(out, tg)
		}
	}
	return out
}
