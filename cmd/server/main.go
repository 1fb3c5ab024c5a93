package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"weread-agent/internal/app/routers"
	"weread-agent/internal/app/services"
	"weread-agent/internal/pkg/logger"
	"weread-agent/internal/pkg/storage"
	"weread-agent/internal/pkg/tracer"
	"weread-agent/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "配置文件路径，为空时只读取环境变量")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("load config: %v", err)
	}
	serverConf := config.GetServerConf()

	closer, err := logger.Init(logger.Options{
		Level: serverConf.LogLevel,
		File:  serverConf.LogFile,
		JSON:  !strings.Contains(config.GetRunMode(), "dev"),
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer := tracer.Init(ctx, serverConf.OtelEnabled, serverConf.OtelEndpoint)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	if err := storage.Init(); err != nil {
		log.Fatalf("init storage: %v", err)
	}
	defer storage.Close()

	services.Init()
	if serverConf.TaskRetention > 0 {
		go services.Search.RunCleanup(ctx, time.Minute, serverConf.TaskRetention)
	}

	if !strings.Contains(config.GetRunMode(), "dev") {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:    serverConf.Addr,
		Handler: routers.SetUp(),
	}

	go func() {
		log.WithField("addr", serverConf.Addr).Info("weread-agent listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
}
