package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

// ErrorHandler renders every error as {"message": ...}. Unexpected errors are logged
// and their text is not exposed.
func ErrorHandler(logger *logrus.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := http.StatusText(code)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(code)
			}
		}
		if code >= http.StatusInternalServerError {
			logger.WithFields(logrus.Fields{
				"method": c.Request().Method,
				"path":   c.Request().URL.Path,
			}).WithError(err).Error("request failed")
		}

		_ = c.JSON(code, map[string]string{"message": msg})
	}
}

// RequestLogger logs method, path and status of every request. The query string is
// left out since self-service links may carry secrets.
func RequestLogger(logger *logrus.Logger) echo.MiddlewareFunc {
	return echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus:   true,
		LogURIPath:  true,
		LogMethod:   true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			logger.WithFields(logrus.Fields{
				"method": v.Method,
				"path":   v.URIPath,
				"status": v.Status,
			}).Info("request")
			return nil
		},
	})
}
