package applogger

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-fulfillment/config"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

// GetLogrus returns the process wide logger configured from the application config.
func GetLogrus() *logrus.Logger {
	once.Do(func() {
		c := config.Get()

		logger = logrus.New()
		logger.SetOutput(os.Stdout)
		logger.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})

		level, err := logrus.ParseLevel(c.Application.LogLevel)
		if err != nil {
			level = logrus.InfoLevel
		}
		if c.Application.Debug {
			level = logrus.DebugLevel
		}
		logger.SetLevel(level)
		logger.AddHook(&traceHook{})
	})

	return logger
}
