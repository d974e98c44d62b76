// Package logging initializes logrus for the job process, mirroring
// core/log.Initialize (see core/log/log_test.go for the behavior this
// reproduces): a text or JSON formatter, a configurable level, and an
// optional Loki hook via yukitsune/lokirus.
package logging

import (
	log "github.com/sirupsen/logrus"
	"github.com/yukitsune/lokirus"

	"github.com/geoffjay/plantd-job/internal/config"
)

// Initialize configures the standard logrus logger from cfg.
func Initialize(cfg config.LogConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Formatter == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	if cfg.Loki.Address != "" {
		opts := lokirus.NewLokiHookOptions().
			WithLevelMap(lokirus.LevelMap{
				log.PanicLevel: "critical",
				log.FatalLevel: "critical",
				log.ErrorLevel: "error",
				log.WarnLevel:  "warning",
				log.InfoLevel:  "info",
				log.DebugLevel: "debug",
				log.TraceLevel: "trace",
			}).
			WithStaticLabels(lokirus.Labels(cfg.Loki.Labels))

		hook := lokirus.NewLokiHookWithOpts(cfg.Loki.Address, opts, log.AllLevels...)
		log.AddHook(hook)
	}
}
