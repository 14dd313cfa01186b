package main

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// AppLogger provides the extended diagnostic logging toggles. Plain
// operational logging goes through the std log package; this exists
// for the opt-in firehoses (websocket traffic, database writes).
type AppLogger struct {
	outputDir string
	logDB     bool
	logWS     bool
	debug     bool

	mu             sync.Mutex
	dbLog          *os.File
	wsLog          *os.File
	wsMessageCount int
}

// Global application logger
var appLogger *AppLogger

// LogConfig holds logging configuration
type LogConfig struct {
	OutputDir string
	LogDB     bool
	LogWS     bool
	Debug     bool
}

// NewAppLogger creates a new application logger
func NewAppLogger(config LogConfig) (*AppLogger, error) {
	al := &AppLogger{
		outputDir: config.OutputDir,
		logDB:     config.LogDB,
		logWS:     config.LogWS,
		debug:     config.Debug,
	}

	if al.outputDir == "" {
		return al, nil // no file logging, stdout only
	}

	var err error
	if al.logDB {
		path := fmt.Sprintf("%s/database.log", al.outputDir)
		al.dbLog, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open database log: %w", err)
		}
	}
	if al.logWS {
		path := fmt.Sprintf("%s/websocket.log", al.outputDir)
		al.wsLog, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open WebSocket log: %w", err)
		}
	}
	return al, nil
}

// InitAppLogger initializes the global application logger
func InitAppLogger(config LogConfig) error {
	var err error
	appLogger, err = NewAppLogger(config)
	return err
}

// Close closes all open log files
func (al *AppLogger) Close() {
	if al.dbLog != nil {
		al.dbLog.Close()
	}
	if al.wsLog != nil {
		al.wsLog.Close()
	}
}

// IsEnabled returns true if any extended logging is enabled
func (al *AppLogger) IsEnabled() bool {
	return al.logDB || al.logWS || al.debug
}

func (al *AppLogger) Debug(format string, args ...any) {
	if !al.debug {
		return
	}
	log.Printf("[DEBUG] "+format, args...)
}

// LogWS records one websocket message, direction IN or OUT.
func (al *AppLogger) LogWS(direction, actor, message string) {
	if !al.logWS {
		return
	}
	al.mu.Lock()
	defer al.mu.Unlock()
	al.wsMessageCount++
	line := fmt.Sprintf("[%s] #%d %s %s: %s\n", time.Now().Format(time.RFC3339), al.wsMessageCount, direction, actor, message)
	if al.wsLog != nil {
		al.wsLog.WriteString(line)
	} else {
		log.Printf("[WS] %s %s: %s", direction, actor, message)
	}
}

// LogDB records a database state marker.
func (al *AppLogger) LogDB(context string) {
	if !al.logDB {
		return
	}
	al.mu.Lock()
	defer al.mu.Unlock()
	line := fmt.Sprintf("[%s] %s\n", time.Now().Format(time.RFC3339), context)
	if al.dbLog != nil {
		al.dbLog.WriteString(line)
	} else {
		log.Printf("[DB] %s", context)
	}
}

// LogWSMessage logs a websocket message using the global logger
func LogWSMessage(direction, actor, message string) {
	if appLogger != nil {
		appLogger.LogWS(direction, actor, message)
	}
}

// LogDBState logs a database marker using the global logger
func LogDBState(context string) {
	if appLogger != nil {
		appLogger.LogDB(context)
	}
}

// DebugLog logs a debug message using the global logger
func DebugLog(format string, args ...any) {
	if appLogger != nil {
		appLogger.Debug(format, args...)
	}
}

// CloseAppLogger closes the global application logger
func CloseAppLogger() {
	if appLogger != nil {
		appLogger.Close()
	}
}

func logError(context string, err error) {
	log.Printf("ERROR [%s]: %v", context, err)
}
