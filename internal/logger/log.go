package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/mattn/go-isatty"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelColors = [...]string{
	"\033[36m", // Cyan
	"\033[32m", // Green
	"\033[33m", // Yellow
	"\033[31m", // Red
	"\033[35m", // Magenta
}

const resetColor = "\033[0m"

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name to a Level. Unknown names give INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// sink is the shared destination of every logger that has not been given
// its own output. It can be pointed at a file after loggers exist.
type sink struct {
	mu         sync.Mutex
	out        io.Writer
	fileHandle *os.File
	path       string
	color      bool
}

var output = &sink{out: os.Stdout}

func (s *sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Write(p)
}

func (s *sink) colored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.color
}

type Logger struct {
	level  Level
	logger *log.Logger
	mu     sync.Mutex
	prefix string
}

// NewLogger creates a new logger instance
func NewLogger(prefix string, level Level) *Logger {
	return &Logger{
		level:  level,
		prefix: prefix,
		logger: log.New(output, fmt.Sprintf("[%s] ", prefix), log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
	}
}

// LevelEnv names the environment variable that overrides every subsystem
// logger's level.
const LevelEnv = "EMBER_LOG_LEVEL"

var subsystems struct {
	mu      sync.Mutex
	loggers []*Logger
}

// Subsystem creates a logger for a runtime subsystem. Its level comes from
// EMBER_LOG_LEVEL when set, fallback otherwise, and follows later calls to
// the package-level SetLevel.
func Subsystem(prefix string, fallback Level) *Logger {
	l := NewLogger(prefix, EnvLevel(fallback))
	subsystems.mu.Lock()
	subsystems.loggers = append(subsystems.loggers, l)
	subsystems.mu.Unlock()
	return l
}

// EnvLevel is the level named by EMBER_LOG_LEVEL, or fallback.
func EnvLevel(fallback Level) Level {
	if v := os.Getenv(LevelEnv); v != "" {
		return ParseLevel(v)
	}
	return fallback
}

func EnvLevelSet() bool {
	return os.Getenv(LevelEnv) != ""
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetOutput sets the output destination
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.SetOutput(w)
}

func (l *Logger) output(level Level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}
	tag := level.String()
	if l.logger.Writer() == io.Writer(output) && output.colored() {
		tag = levelColors[level] + tag + resetColor
	}
	l.logger.Output(4, fmt.Sprintf("[%s] %s", tag, msg))
}

func (l *Logger) log(level Level, v ...interface{}) {
	l.output(level, fmt.Sprint(v...))
}

func (l *Logger) logf(level Level, format string, v ...interface{}) {
	l.output(level, fmt.Sprintf(format, v...))
}

func (l *Logger) Debug(v ...interface{}) { l.log(DEBUG, v...) }
func (l *Logger) Info(v ...interface{})  { l.log(INFO, v...) }
func (l *Logger) Warn(v ...interface{})  { l.log(WARN, v...) }
func (l *Logger) Error(v ...interface{}) { l.log(ERROR, v...) }
func (l *Logger) Fatal(v ...interface{}) {
	l.log(FATAL, v...)
	os.Exit(1)
}

func (l *Logger) Debugf(format string, v ...interface{}) { l.logf(DEBUG, format, v...) }
func (l *Logger) Infof(format string, v ...interface{})  { l.logf(INFO, format, v...) }
func (l *Logger) Warnf(format string, v ...interface{})  { l.logf(WARN, format, v...) }
func (l *Logger) Errorf(format string, v ...interface{}) { l.logf(ERROR, format, v...) }
func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.logf(FATAL, format, v...)
	os.Exit(1)
}

// Configure points every logger that uses the shared output at logFile, or
// stderr when logFile is empty. Color is only used on a terminal.
func Configure(logFile string, color bool) error {
	var out io.Writer = os.Stderr
	var fh *os.File
	if logFile != "" {
		var err error
		fh, err = os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		out = fh
	}

	output.mu.Lock()
	if output.fileHandle != nil {
		output.fileHandle.Close()
	}
	output.out = out
	output.fileHandle = fh
	output.path = logFile
	output.color = color && isTerminal(out)
	output.mu.Unlock()

	if fh != nil {
		setupLogRotation()
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

func (s *sink) reopen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return
	}
	fh, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not reopen log file: %v\n", err)
		return
	}
	if s.fileHandle != nil {
		s.fileHandle.Close()
	}
	s.fileHandle = fh
	s.out = fh
}

var rotation sync.Once

func setupLogRotation() {
	/*
	 * reopen the log file on SIGHUP so it can be rotated:
	 * mv ember.log ember.bak && kill -HUP <pid>
	 */
	rotation.Do(func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGHUP)
		go func() {
			for range sigs {
				output.reopen()
			}
		}()
	})
}

// Close closes the log file, if any, and returns output to stderr.
func Close() {
	output.mu.Lock()
	defer output.mu.Unlock()
	if output.fileHandle != nil {
		_ = output.fileHandle.Close()
		output.fileHandle = nil
	}
	output.out = os.Stderr
	output.path = ""
}

// SetLevel sets the level of the default logger and of every subsystem
// logger.
func SetLevel(level Level) {
	defaultLogger.SetLevel(level)
	subsystems.mu.Lock()
	defer subsystems.mu.Unlock()
	for _, l := range subsystems.loggers {
		l.SetLevel(level)
	}
}

// Global logger instance
var defaultLogger = NewLogger("ember", INFO)

// Package-level convenience functions
func SetOutput(w io.Writer)                  { defaultLogger.SetOutput(w) }
func Debugf(format string, v ...interface{}) { defaultLogger.Debugf(format, v...) }
func Infof(format string, v ...interface{})  { defaultLogger.Infof(format, v...) }
func Warnf(format string, v ...interface{})  { defaultLogger.Warnf(format, v...) }
func Errorf(format string, v ...interface{}) { defaultLogger.Errorf(format, v...) }
func Fatalf(format string, v ...interface{}) { defaultLogger.Fatalf(format, v...) }
