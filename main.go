package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"questionnaire-app/backend/config"
	"questionnaire-app/backend/database"
	"questionnaire-app/backend/handlers"
	"questionnaire-app/backend/logger"
	"questionnaire-app/backend/middleware"
	"questionnaire-app/backend/otp"
	"questionnaire-app/backend/questionnaire"
	"questionnaire-app/backend/session"
	"questionnaire-app/backend/sms"
	"questionnaire-app/backend/users"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal("Failed to load config:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, config.C.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize structured logging
	slog.SetDefault(slog.New(logger.NewDBHandler(db)))
	go logger.CleanupOldLogs(ctx, db, config.C.Logs.Retention)

	otpOpts := []otp.Option{otp.WithTTL(config.C.OTP.TTL)}
	switch {
	case config.C.RedisURL != "" && config.C.OTP.ResendCooldown > 0:
		client, err := otp.ConnectRedis(ctx, config.C.RedisURL)
		if err != nil {
			log.Fatal("Failed to connect to redis:", err)
		}
		defer client.Close()
		otpOpts = append(otpOpts, otp.WithThrottle(otp.NewRedisThrottle(client, config.C.OTP.ResendCooldown)))
	case config.C.OTP.ResendCooldown > 0:
		otpOpts = append(otpOpts, otp.WithThrottle(otp.NewMemoryThrottle(config.C.OTP.ResendCooldown)))
	}
	otpStore := otp.New(db, otpOpts...)
	go otpStore.RunCleanup(ctx, config.C.OTP.CleanupInterval, config.C.OTP.CleanupMaxAge)

	var sender sms.Sender = sms.LogSender{}
	if config.C.SMS.GatewayURL != "" {
		sender = sms.NewHTTPSender(config.C.SMS.GatewayURL, config.C.SMS.APIKey, config.C.SMS.SenderID)
	}

	issuer, err := session.New(session.Options{
		Secret:     config.C.Session.Secret,
		CookieName: config.C.Session.CookieName,
		MaxAge:     config.C.Session.Timeout,
		Secure:     config.C.Session.Secure,
	})
	if err != nil {
		log.Fatal("Failed to init session:", err)
	}

	h := &handlers.Handler{
		Users:          users.New(db, config.C.OwnerID),
		OTP:            otpStore,
		Questionnaires: questionnaire.New(db),
		Sessions:       issuer,
		SMS:            sender,
		DB:             db,
	}

	authLimiter := middleware.NewRateLimiter(config.C.RateLimit.Requests, config.C.RateLimit.Window)
	defer authLimiter.Stop()
	if err := authLimiter.TrustProxies(config.C.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies:", err)
	}
	opts := handlers.RouterOptions{
		AuthLimiter: authLimiter,
		MaxBodySize: config.C.HTTP.MaxBodySize,
	}
	if config.C.CSRF.Enabled {
		secret := config.C.CSRF.Secret
		if secret == "" {
			secret = config.C.Session.Secret
		}
		opts.CSRF = middleware.NewCSRFProtection(secret, config.C.Session.Secure)
	}

	srv := &http.Server{
		Addr:              config.C.Listen,
		Handler:           handlers.NewRouter(h, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "source", "main", "error", err.Error())
		}
	}()

	slog.Info("server starting", "source", "main", "listen", config.C.Listen, "tls", config.C.TLS.Enabled, "database", db != nil)
	if config.C.TLS.Enabled {
		err = srv.ListenAndServeTLS(config.C.TLS.Cert, config.C.TLS.Key)
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	slog.Info("server stopped", "source", "main")
}
