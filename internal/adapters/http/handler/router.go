package handler

import (
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/ogurasousui/codex-employee-api/internal/core/employee"
	"github.com/ogurasousui/codex-employee-api/internal/platform/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig は NewRouter の依存関係です。Pinger と Gatherer は省略できます。
type RouterConfig struct {
	UseCase  employee.UseCase
	Pinger   DBPinger
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

var registerTagNameOnce sync.Once

// バリデーションエラーのフィールド名を JSON 名で返すようにします。
func useJSONFieldNames() {
	registerTagNameOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// NewRouter は社員 API の gin.Engine を構築します。
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	useJSONFieldNames()

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	r := gin.New()
	r.Use(RequestID(), AccessLog(log), Instrument(cfg.Metrics), Recovery(log))
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: http.StatusText(http.StatusNotFound)})
	})

	NewEmployeeHandler(cfg.UseCase, log).Register(r)

	openapiDoc, err := OpenAPI()
	if err != nil {
		return nil, err
	}
	r.GET("/openapi.yaml", openapiDoc)

	if cfg.Pinger != nil {
		r.GET("/healthz", NewHealthChecker(cfg.Pinger, log).Handle)
	}
	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	return r, nil
}
