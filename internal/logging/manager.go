package logging

import "sync"

// Логгеры компонентов по имени. Создаются при первом обращении и берут
// порог консоли у глобального логгера.
var (
	componentsMu sync.Mutex
	components   = make(map[string]*Logger)
)

// GetComponentLogger логгер компонента. Если файл логов создать не
// удалось, компонент пишет только в консоль.
func GetComponentLogger(component string) *Logger {
	componentsMu.Lock()
	defer componentsMu.Unlock()
	if l, ok := components[component]; ok {
		return l
	}
	l, err := NewLogger(component)
	if err != nil {
		defaultLogger.Warn("логгер %s без файла: %v", component, err)
		l = &Logger{component: component, consoleLogger: defaultLogger.consoleLogger, minFileLevel: ERROR}
	}
	defaultLogger.mu.Lock()
	l.minConsoleLevel = defaultLogger.minConsoleLevel
	defaultLogger.mu.Unlock()
	components[component] = l
	return l
}

func setComponentsLevel(level LogLevel) {
	componentsMu.Lock()
	defer componentsMu.Unlock()
	for _, l := range components {
		l.mu.Lock()
		l.minConsoleLevel = level
		l.mu.Unlock()
	}
}

// closeComponents закрывает файлы компонентов; следующие обращения
// создадут логгеры заново
func closeComponents() {
	componentsMu.Lock()
	defer componentsMu.Unlock()
	for name, l := range components {
		if err := l.Close(); err != nil {
			defaultLogger.Warn("закрытие логов %s: %v", name, err)
		}
	}
	components = make(map[string]*Logger)
}

func GetNetworkLogger() *Logger { return GetComponentLogger("network") }
func GetWorldLogger() *Logger   { return GetComponentLogger("world") }
func GetBuildLogger() *Logger   { return GetComponentLogger("build") }
func GetStorageLogger() *Logger { return GetComponentLogger("storage") }
