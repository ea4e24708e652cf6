package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eaglebank/banking/api-gateway/internal/proxy"
	"github.com/eaglebank/banking/shared/config"
	"github.com/eaglebank/banking/shared/logger"
	"github.com/eaglebank/banking/shared/middleware"
	"github.com/eaglebank/banking/shared/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var defaults = config.Defaults{
	ServiceName: "api-gateway",
	Port:        "8080",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:          "api-gateway",
		Short:        "Single entry point in front of the customer and account services",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), config.Load(defaults))
		},
	}
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	log, err := logger.New(cfg.ServiceName, cfg.IsDevelopment())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoggingMiddleware(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "api-gateway"})
	})
	proxy.RegisterRoutes(router,
		proxy.NewUpstream("customer-service", cfg.CustomerServiceURL, cfg.UpstreamTimeout, log),
		proxy.NewUpstream("account-service", cfg.AccountServiceURL, cfg.UpstreamTimeout, log),
	)

	log.Info("routing upstreams",
		zap.String("customers", cfg.CustomerServiceURL),
		zap.String("accounts", cfg.AccountServiceURL),
	)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.Run(ctx, srv, log)
}
