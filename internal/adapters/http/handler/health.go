package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/codex-employee-api/internal/platform/logger"
)

const pingTimeout = 2 * time.Second

// DBPinger はストアへの疎通確認を行います。
type DBPinger interface {
	Ping(ctx context.Context) error
}

// PingFunc は関数を DBPinger として扱うアダプターです。
type PingFunc func(ctx context.Context) error

// Ping は f を呼び出します。
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthChecker は /healthz を提供します。
type HealthChecker struct {
	db  DBPinger
	log *slog.Logger
}

// NewHealthChecker は HealthChecker を生成します。
func NewHealthChecker(db DBPinger, log *slog.Logger) *HealthChecker {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &HealthChecker{db: db, log: log}
}

// Handle はストアの状態を JSON で返します。
func (h *HealthChecker) Handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.log.WarnContext(ctx, "health check failed: store ping", logger.Err(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"database": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"database": "ok"})
}
