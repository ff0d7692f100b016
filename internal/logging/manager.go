package logging

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Компоненты с собственными логгерами
const (
	ComponentChunks = "chunks"
	ComponentWorld  = "world"
)

// Registry хранит логгеры компонентов. Логгер компонента наследует настройки
// глобального логгера в момент первого запроса.
type Registry struct {
	mu      sync.Mutex
	loggers map[string]*Logger
}

var components = &Registry{loggers: make(map[string]*Logger)}

// Components возвращает реестр логгеров процесса
func Components() *Registry { return components }

// Logger возвращает логгер компонента. Пока глобальный логгер не
// инициализирован, возвращает nil, и вывод компонента отключён.
func (r *Registry) Logger(component string) *Logger {
	root := getDefault()
	if root == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.loggers[component]; ok {
		return l
	}

	defaultMu.RLock()
	opts := defaultOpts
	defaultMu.RUnlock()

	l, err := NewLogger(component, opts)
	if err != nil {
		root.Warn("⚠️ Логгер компонента %s недоступен, пишу в общий: %v", component, err)
		return root
	}
	r.loggers[component] = l
	return l
}

// Names возвращает имена созданных логгеров по алфавиту
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.loggers))
}

// SetLevel меняет пороги вывода уже созданного логгера компонента
func (r *Registry) SetLevel(component string, console, file LogLevel) error {
	r.mu.Lock()
	l, ok := r.loggers[component]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("логгер компонента %s не создан", component)
	}

	l.mu.Lock()
	l.minConsoleLevel = console
	l.minFileLevel = file
	l.mu.Unlock()
	return nil
}

// reset закрывает логгеры компонентов и очищает реестр
func (r *Registry) reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, l := range r.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	clear(r.loggers)
	if len(errs) > 0 {
		return fmt.Errorf("закрытие логгеров: %v", errs)
	}
	return nil
}

// GetChunkLogger логгер планировщика чанков
func GetChunkLogger() *Logger { return components.Logger(ComponentChunks) }

// GetWorldLogger логгер мира
func GetWorldLogger() *Logger { return components.Logger(ComponentWorld) }
