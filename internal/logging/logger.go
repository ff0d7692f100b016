package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень логирования из строки конфигурации
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("неизвестный уровень логирования %q", s)
	}
}

// Options настройки логгера
type Options struct {
	Dir             string    // директория файлов логов; пусто - без файла
	Console         io.Writer // nil - os.Stdout
	MinConsoleLevel LogLevel
	MinFileLevel    LogLevel
}

// Logger представляет систему логирования компонента
type Logger struct {
	component       string
	mu              sync.Mutex
	consoleLogger   *log.Logger
	fileLogger      *log.Logger
	file            *os.File
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
}

// Глобальный экземпляр логгера
var (
	defaultMu     sync.RWMutex
	defaultLogger *Logger
	defaultOpts   = Options{MinConsoleLevel: INFO, MinFileLevel: DEBUG}
)

// NewLogger создаёт логгер компонента с консольным и (опционально) файловым выводом
func NewLogger(component string, opts Options) (*Logger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	l := &Logger{
		component:       component,
		consoleLogger:   log.New(console, "", log.LstdFlags|log.Lmicroseconds),
		minConsoleLevel: opts.MinConsoleLevel,
		minFileLevel:    opts.MinFileLevel,
	}

	if opts.Dir == "" {
		return l, nil
	}

	// Создаем директорию для логов
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории %s: %w", opts.Dir, err)
	}

	// Создаем файл для логов с временной меткой
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.log", component, timestamp))

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания файла логов: %w", err)
	}
	l.file = file
	l.fileLogger = log.New(file, "", log.LstdFlags|log.Lmicroseconds)
	return l, nil
}

// InitDefaultLogger инициализирует глобальный логгер процесса
func InitDefaultLogger(component string, opts Options) error {
	l, err := NewLogger(component, opts)
	if err != nil {
		return err
	}

	defaultMu.Lock()
	old := defaultLogger
	defaultLogger = l
	defaultOpts = opts
	defaultMu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// CloseDefaultLogger закрывает глобальный логгер и все логгеры компонентов
func CloseDefaultLogger() {
	defaultMu.Lock()
	l := defaultLogger
	defaultLogger = nil
	defaultMu.Unlock()

	if l != nil {
		l.Close()
	}
	components.reset()
}

func getDefault() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Close закрывает файл логов
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.fileLogger = nil
	return err
}

// Enabled сообщает, будет ли записано сообщение уровня level
func (l *Logger) Enabled(level LogLevel) bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.minConsoleLevel || (l.fileLogger != nil && level >= l.minFileLevel)
}

func (l *Logger) logMessage(level LogLevel, format string, args ...interface{}) {
	if l == nil {
		return
	}

	message := fmt.Sprintf("[%s] [%s] %s", level.String(), l.component, fmt.Sprintf(format, args...))

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileLogger != nil && level >= l.minFileLevel {
		l.fileLogger.Println(message)
	}
	if level >= l.minConsoleLevel {
		l.consoleLogger.Println(message)
	}
}

// Trace логирует сообщение уровня TRACE
func (l *Logger) Trace(format string, args ...interface{}) { l.logMessage(TRACE, format, args...) }

// Debug логирует сообщение уровня DEBUG
func (l *Logger) Debug(format string, args ...interface{}) { l.logMessage(DEBUG, format, args...) }

// Info логирует сообщение уровня INFO
func (l *Logger) Info(format string, args ...interface{}) { l.logMessage(INFO, format, args...) }

// Warn логирует сообщение уровня WARN
func (l *Logger) Warn(format string, args ...interface{}) { l.logMessage(WARN, format, args...) }

// Error логирует сообщение уровня ERROR
func (l *Logger) Error(format string, args ...interface{}) { l.logMessage(ERROR, format, args...) }

// Функции глобального логгера. До InitDefaultLogger ничего не пишут.

func Trace(format string, args ...interface{}) { getDefault().logMessage(TRACE, format, args...) }
func Debug(format string, args ...interface{}) { getDefault().logMessage(DEBUG, format, args...) }
func Info(format string, args ...interface{})  { getDefault().logMessage(INFO, format, args...) }
func Warn(format string, args ...interface{})  { getDefault().logMessage(WARN, format, args...) }
func Error(format string, args ...interface{}) { getDefault().logMessage(ERROR, format, args...) }
