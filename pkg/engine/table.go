package engine

import (
	"context"
	"reflect"
	"regexp"
	"strings"

	"github.com/ruslano69/dynaq/pkg/drivers"
	"github.com/ruslano69/dynaq/pkg/executor"
	"github.com/ruslano69/dynaq/pkg/mapper"
)

// Table - табличная конфигурация: имя таблицы, имя ключевого поля и
// identity-флаг (генерирует ли БД значение ключа при вставке).
// Все поставляется вызывающим при конструировании; ключ и identity
// могут также выводиться из тегов типизированной записи.
type Table struct {
	db       *DB
	name     string
	key      string
	identity bool
}

// Table создает табличную конфигурацию с явным именем таблицы
func (db *DB) Table(name string) *Table {
	return &Table{db: db, name: name}
}

// TableFor создает табличную конфигурацию по типу записи:
// имя таблицы - имя типа, ключ и identity - из тегов db.
func TableFor[T any](db *DB) (*Table, error) {
	desc, err := db.reg.Descriptor(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	t := db.Table(desc.TableName())
	if k, ok := desc.Key(); ok {
		t.key = k.Name
		t.identity = k.Identity
	}
	return t, nil
}

// Key задает имя ключевого поля
func (t *Table) Key(name string) *Table {
	t.key = name
	return t
}

// Identity задает identity-флаг ключа
func (t *Table) Identity(on bool) *Table {
	t.identity = on
	return t
}

// Name возвращает имя таблицы
func (t *Table) Name() string { return t.name }

var selectPrefixRe = regexp.MustCompile(`(?is)^\s*select\b`)

// buildSelect выполняет композицию SELECT-образного запроса:
// пустой текст - полный SELECT по таблице; текст без ведущего SELECT
// трактуется как суффикс (WHERE/ORDER BY); текст с ведущим SELECT
// проходит без изменений.
func (t *Table) buildSelect(query string) string {
	q := strings.TrimSpace(query)
	switch {
	case q == "":
		return "SELECT * FROM " + t.name
	case !selectPrefixRe.MatchString(q):
		return "SELECT * FROM " + t.name + " " + q
	default:
		return q
	}
}

// buildSelectOne дополнительно ограничивает результат одной строкой,
// если в конце текста еще нет limit-клаузы
func (t *Table) buildSelectOne(query string) string {
	return t.db.drv.Dialect().LimitOne(t.buildSelect(query))
}

// All возвращает все строки динамическими записями
func (t *Table) All(ctx context.Context, query string, args ...any) (out []*mapper.DynamicRecord, err error) {
	err = t.db.withConn(ctx, func(conn drivers.Conn) error {
		out, err = executor.AllRecords(ctx, conn, t.buildSelect(query), args...)
		return err
	})
	return out, err
}

// Single возвращает первую строку динамической записью, либо nil
func (t *Table) Single(ctx context.Context, query string, args ...any) (out *mapper.DynamicRecord, err error) {
	err = t.db.withConn(ctx, func(conn drivers.Conn) error {
		out, err = executor.SingleRecord(ctx, conn, t.buildSelectOne(query), args...)
		return err
	})
	return out, err
}

// Exec выполняет произвольную команду на таблице (без композиции)
func (t *Table) Exec(ctx context.Context, query string, args ...any) (n int64, err error) {
	err = t.db.withConn(ctx, func(conn drivers.Conn) error {
		n, err = executor.Affected(ctx, conn, query, args...)
		return err
	})
	return n, err
}

// All возвращает все строки, отображенные в T, в порядке чтения
func All[T any](ctx context.Context, t *Table, query string, args ...any) (out []T, err error) {
	err = t.db.withConn(ctx, func(conn drivers.Conn) error {
		out, err = executor.All[T](ctx, t.db.reg, conn, t.buildSelect(query), args...)
		return err
	})
	return out, err
}

// Single возвращает первую строку, отображенную в T, либо nil
func Single[T any](ctx context.Context, t *Table, query string, args ...any) (out *T, err error) {
	err = t.db.withConn(ctx, func(conn drivers.Conn) error {
		out, err = executor.Single[T](ctx, t.db.reg, conn, t.buildSelectOne(query), args...)
		return err
	})
	return out, err
}

// Scalar возвращает первую колонку первой строки, приведенную к T.
// Композиция запроса та же, что у All.
func Scalar[T any](ctx context.Context, t *Table, query string, args ...any) (out T, err error) {
	err = t.db.withConn(ctx, func(conn drivers.Conn) error {
		out, err = executor.Scalar[T](ctx, conn, t.buildSelect(query), args...)
		return err
	})
	return out, err
}
