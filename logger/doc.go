// Package logger provides structured logging for voicenotes services
// on top of zerolog.
//
// Loggers are created from a Config and scoped per component:
//
//	log := logger.New(&cfg.Logging, cfg.Name).WithComponent("dictation")
//	log.Info("session started", logger.Fields("surface", id))
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"   # or "console"
//	  output: "stdout"
//
// Package-level helpers (Info, Warn, Error...) delegate to a global
// logger installed with Init or SetGlobalLogger.
package logger
