// Package config загружает YAML-конфигурацию подключений.
// Ядро не читает конфигурацию само - значения передаются компонентам
// при конструировании; этот пакет обслуживает CLI и приложения.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ruslano69/dynaq/pkg/drivers"
)

// File - полная конфигурация: именованные цели подключения
type File struct {
	// Default - имя цели по умолчанию
	Default string `yaml:"default"`

	// Databases - цели подключения по именам
	Databases map[string]Database `yaml:"databases"`
}

// Database - одна цель подключения
type Database struct {
	Type     string `yaml:"type"`      // Тип: sqlite, postgres, mysql, mssql, odbc
	DSN      string `yaml:"dsn"`       // Строка подключения
	Schema   string `yaml:"schema"`    // Схема по умолчанию (postgres)
	Timeout  int    `yaml:"timeout"`   // Таймаут запросов в секундах (0 = без таймаута)
	MaxConns int    `yaml:"max_conns"` // Максимум физических соединений (0 = без лимита)
}

// Load читает и валидирует конфигурацию из YAML-файла
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse разбирает и валидирует конфигурацию из байтов
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate проверяет полноту конфигурации
func (f *File) Validate() error {
	if len(f.Databases) == 0 {
		return fmt.Errorf("config: no databases defined")
	}
	for name, db := range f.Databases {
		if db.Type == "" {
			return fmt.Errorf("config: database %q: type is required", name)
		}
		if db.DSN == "" {
			return fmt.Errorf("config: database %q: dsn is required", name)
		}
	}
	if f.Default != "" {
		if _, ok := f.Databases[f.Default]; !ok {
			return fmt.Errorf("config: default target %q is not defined", f.Default)
		}
	}
	return nil
}

// Target возвращает цель по имени; пустое имя - цель по умолчанию
func (f *File) Target(name string) (Database, error) {
	if name == "" {
		name = f.Default
	}
	if name == "" {
		return Database{}, fmt.Errorf("config: no target name given and no default set")
	}
	db, ok := f.Databases[name]
	if !ok {
		return Database{}, fmt.Errorf("config: unknown target %q", name)
	}
	return db, nil
}

// DriverConfig конвертирует цель в конфигурацию драйвера
func (d Database) DriverConfig() drivers.Config {
	return drivers.Config{
		Type:     d.Type,
		DSN:      d.DSN,
		Schema:   d.Schema,
		Timeout:  time.Duration(d.Timeout) * time.Second,
		MaxConns: d.MaxConns,
	}
}
