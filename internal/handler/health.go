package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/infra"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthCheck probes one backing dependency.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

func DBCheck(db *gorm.DB) HealthCheck {
	return HealthCheck{Name: "db", Ping: func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}}
}

func RedisCheck(rdb *redis.Client) HealthCheck {
	return HealthCheck{Name: "redis", Ping: func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}}
}

// Health reports every dependency; any failed probe answers 503. The mailer
// breaker is informative only: closing reports queue up while it is open.
// Never exposes credentials or internals.
func Health(mailerCB *infra.CircuitBreaker, checks ...HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		body := gin.H{}
		status := http.StatusOK
		for _, chk := range checks {
			if err := chk.Ping(ctx); err != nil {
				body[chk.Name] = "error"
				status = http.StatusServiceUnavailable
				continue
			}
			body[chk.Name] = "connected"
		}
		if mailerCB != nil {
			body["mailer"] = mailerCB.State().String()
		}
		body["ok"] = status == http.StatusOK
		c.JSON(status, body)
	}
}
