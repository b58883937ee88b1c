package drivers

import (
	"fmt"
	"sync"
)

// Constructor - функция-конструктор драйвера для одного типа СУБД.
// Получает конфигурацию и возвращает драйвер (соединения еще не открыты).
type Constructor func(cfg Config) (Driver, error)

// Factory - фабрика драйверов.
// Управляет регистрацией и созданием драйверов различных типов СУБД.
type Factory struct {
	registry map[string]Constructor
	mu       sync.RWMutex
}

// NewFactory создает новую фабрику драйверов
func NewFactory() *Factory {
	return &Factory{
		registry: make(map[string]Constructor),
	}
}

// Register регистрирует конструктор драйвера для определенного типа БД.
// dbType - один из: "sqlite", "postgres", "mysql", "mssql", "odbc".
func (f *Factory) Register(dbType string, constructor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registry[dbType] = constructor
}

// Unregister удаляет конструктор драйвера
func (f *Factory) Unregister(dbType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.registry, dbType)
}

// IsRegistered проверяет, зарегистрирован ли драйвер для данного типа БД
func (f *Factory) IsRegistered(dbType string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.registry[dbType]
	return ok
}

// RegisteredTypes возвращает список всех зарегистрированных типов БД
func (f *Factory) RegisteredTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.registry))
	for dbType := range f.registry {
		types = append(types, dbType)
	}
	return types
}

// Create создает драйвер по конфигурации.
// Физические соединения открываются позже, по требованию пула.
func (f *Factory) Create(cfg Config) (Driver, error) {
	f.mu.RLock()
	constructor, ok := f.registry[cfg.Type]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown database type: %s (available types: %v)",
			cfg.Type, f.RegisteredTypes())
	}

	drv, err := constructor(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s driver: %w", cfg.Type, err)
	}
	return drv, nil
}

// ========== Global Factory ==========

var globalFactory = NewFactory()

// Register регистрирует драйвер в глобальной фабрике.
// Обычно вызывается в init() функциях пакетов-провайдеров:
//
//	func init() {
//	    drivers.Register("sqlite", func(cfg drivers.Config) (drivers.Driver, error) {
//	        return base.NewSQLDriver("sqlite", dialect, cfg), nil
//	    })
//	}
func Register(dbType string, constructor Constructor) {
	globalFactory.Register(dbType, constructor)
}

// Unregister удаляет драйвер из глобальной фабрики
func Unregister(dbType string) {
	globalFactory.Unregister(dbType)
}

// IsRegistered проверяет регистрацию в глобальной фабрике
func IsRegistered(dbType string) bool {
	return globalFactory.IsRegistered(dbType)
}

// RegisteredTypes возвращает типы из глобальной фабрики
func RegisteredTypes() []string {
	return globalFactory.RegisteredTypes()
}

// New создает драйвер через глобальную фабрику.
// Это основной способ создания драйверов в приложении:
//
//	drv, err := drivers.New(drivers.Config{
//	    Type: "sqlite",
//	    DSN:  "file:app.db",
//	})
func New(cfg Config) (Driver, error) {
	return globalFactory.Create(cfg)
}

// MustNew создает драйвер или паникует при ошибке.
// Использовать только в init() или main(), где паника допустима.
func MustNew(cfg Config) Driver {
	drv, err := New(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to create driver: %v", err))
	}
	return drv
}
