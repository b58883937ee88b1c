// Package engine - табличный слой персистентности поверх пула и
// исполнителя. Выводит INSERT/UPDATE/DELETE из произвольных форм
// записей, пакует несколько команд в одну транзакцию и возвращает
// сгенерированные identity-значения обратно в записи.
package engine

import (
	"context"

	"github.com/ruslano69/dynaq/pkg/drivers"
	"github.com/ruslano69/dynaq/pkg/executor"
	"github.com/ruslano69/dynaq/pkg/mapper"
	"github.com/ruslano69/dynaq/pkg/pool"
)

// DB - подключение к одной БД: драйвер, пул соединений и реестр
// дескрипторов. Реестр у каждого DB свой и передается внутрь
// компонентов явно.
type DB struct {
	drv  drivers.Driver
	pool *pool.Pool
	reg  *mapper.Registry
}

// Open создает DB по конфигурации через глобальную фабрику драйверов.
// Пакет-провайдер нужного типа должен быть подключен импортом:
//
//	import _ "github.com/ruslano69/dynaq/pkg/drivers/sqlite"
//
//	db, err := engine.Open(drivers.Config{Type: "sqlite", DSN: ":memory:"})
func Open(cfg drivers.Config) (*DB, error) {
	drv, err := drivers.New(cfg)
	if err != nil {
		return nil, err
	}
	return NewDB(drv), nil
}

// NewDB создает DB поверх готового драйвера (в т.ч. фейкового в тестах)
func NewDB(drv drivers.Driver) *DB {
	return &DB{
		drv:  drv,
		pool: pool.New(drv),
		reg:  mapper.NewRegistry(),
	}
}

// Close закрывает пул (все простаивающие соединения) и драйвер.
// Идемпотентен.
func (db *DB) Close() error {
	db.pool.Shutdown()
	return db.drv.Close()
}

// Pool возвращает пул соединений
func (db *DB) Pool() *pool.Pool { return db.pool }

// Registry возвращает реестр дескрипторов этого DB
func (db *DB) Registry() *mapper.Registry { return db.reg }

// Dialect возвращает диалект целевой СУБД
func (db *DB) Dialect() drivers.Dialect { return db.drv.Dialect() }

// withConn выполняет fn на соединении из пула с гарантированным
// возвратом соединения на каждом пути выхода
func (db *DB) withConn(ctx context.Context, fn func(conn drivers.Conn) error) error {
	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer db.pool.Release(conn)
	return fn(conn)
}

// Exec выполняет произвольную команду (DDL, сырой DML) и возвращает
// количество затронутых строк. Текст не подвергается композиции.
func (db *DB) Exec(ctx context.Context, query string, args ...any) (n int64, err error) {
	err = db.withConn(ctx, func(conn drivers.Conn) error {
		n, err = executor.Affected(ctx, conn, query, args...)
		return err
	})
	return n, err
}

// Records выполняет произвольный запрос и возвращает все строки
// динамическими записями. Текст не подвергается композиции.
func (db *DB) Records(ctx context.Context, query string, args ...any) (out []*mapper.DynamicRecord, err error) {
	err = db.withConn(ctx, func(conn drivers.Conn) error {
		out, err = executor.AllRecords(ctx, conn, query, args...)
		return err
	})
	return out, err
}
