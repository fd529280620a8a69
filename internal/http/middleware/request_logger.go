package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/jobautomate-backend/internal/logger"
)

// RequestLogger пишет access лог запросов через logrus.
func RequestLogger() gin.HandlerFunc {
	log := logger.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"ip":       c.ClientIP(),
		})
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("запрос завершился ошибкой")
		case c.Writer.Status() >= 400:
			entry.Warn("запрос отклонён")
		default:
			entry.Debug("запрос обработан")
		}
	}
}
