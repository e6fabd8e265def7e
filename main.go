package main

import (
	"context"
	"hash/fnv"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"PPGate/global/config"
	"PPGate/logger"
	"PPGate/metrics"
	"PPGate/middleware/security"
	"PPGate/service/chat"
	"PPGate/service/chat/handlers"
	"PPGate/service/storage"
	"PPGate/tools/ids"
	sec "PPGate/tools/security"
)

func main() {
	cfg := config.Load()
	defer logger.Sync()

	ids.SetNodeID(nodeNum(cfg.NodeId))

	var presence *storage.Presence
	if cfg.RedisAddr != "" {
		p, err := storage.NewPresence(storage.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.NodeId, cfg.PresenceTTL)
		if err != nil {
			logger.Errorf("presence mirror unavailable, continuing without: %v", err)
		} else {
			presence = p
			defer presence.Close()
		}
	}

	resolver := sec.NewTokenResolver(sec.Options{
		Secret: cfg.JwtSecret,
		Alg:    cfg.JwtAlg,
		TTL:    cfg.JwtTTL,
	})

	s := chat.NewServer(cfg, resolver, presence)
	handlers.RegisterAll(s)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/ws", s.HandleWS)
	r.GET("/ws/chat/:room_id", s.HandleRoomWS)

	authed := r.Group("/chat", security.Middleware(resolver, nil))
	authed.GET("/rooms", s.HandleUserRooms)
	authed.GET("/rooms/:room_id/users", s.HandleRoomUsers)

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	srv := &http.Server{Addr: cfg.Addr, Handler: r}

	go func() {
		logger.Infof("gateway %s listening on %s", cfg.NodeId, cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("listen: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("http shutdown: %v", err)
	}
	s.Shutdown()
}

func nodeNum(nodeID string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(nodeID))
	return int64(h.Sum32() % 1024)
}
