package engine

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/ruslano69/dynaq/pkg/binder"
	"github.com/ruslano69/dynaq/pkg/drivers"
	"github.com/ruslano69/dynaq/pkg/executor"
	"github.com/ruslano69/dynaq/pkg/mapper"
)

// command - один элемент Command Set: текст SQL, параметры и запись,
// которой нужно вернуть сгенерированный identity. Запись не-nil только
// у insert-команды с identity-ключом.
type command struct {
	sql    string
	params []drivers.Param
	rec    mapper.Record
	key    string
}

// Save сохраняет записи: по наличию валидного (ненулевого) ключа
// каждая запись превращается в UPDATE либо INSERT. Несколько команд
// выполняются в одной транзакции в порядке следования записей;
// после каждого identity-insert сгенерированное значение ключа
// записывается обратно в запись.
//
// Записи могут быть указателями на структуры, структурами (изменения
// остаются в копии) или mapper.Record.
func (t *Table) Save(ctx context.Context, records ...any) error {
	cmds, err := t.buildSaveSet(records)
	if err != nil {
		return err
	}
	return t.run(ctx, cmds)
}

// Delete удаляет записи по ключу. Записи без валидного ключа
// молча пропускаются.
func (t *Table) Delete(ctx context.Context, records ...any) error {
	cmds, err := t.buildDeleteSet(records)
	if err != nil {
		return err
	}
	return t.run(ctx, cmds)
}

func (t *Table) buildSaveSet(records []any) ([]command, error) {
	var cmds []command
	for _, raw := range records {
		if isNilRecord(raw) {
			continue
		}
		rec, err := mapper.Of(raw, t.db.reg)
		if err != nil {
			return nil, err
		}

		key, identity := t.keyFor(rec)
		keyVal, keySet := keyValue(rec, key)

		if key != "" && keySet {
			if cmd, ok := buildUpdate(t.name, rec, key, keyVal); ok {
				cmds = append(cmds, cmd)
			}
			continue
		}
		if cmd, ok := buildInsert(t.name, rec, key, identity); ok {
			cmds = append(cmds, cmd)
		}
	}
	return cmds, nil
}

func (t *Table) buildDeleteSet(records []any) ([]command, error) {
	var cmds []command
	for _, raw := range records {
		if isNilRecord(raw) {
			continue
		}
		rec, err := mapper.Of(raw, t.db.reg)
		if err != nil {
			return nil, err
		}

		key, _ := t.keyFor(rec)
		keyVal, keySet := keyValue(rec, key)
		if key == "" || !keySet {
			continue
		}
		cmds = append(cmds, command{
			sql:    "DELETE FROM " + t.name + " WHERE " + key + " = @0",
			params: []drivers.Param{binder.Bind(0, keyVal)},
		})
	}
	return cmds, nil
}

// buildUpdate строит UPDATE, исключая ключевую колонку из SET-списка
func buildUpdate(table string, rec mapper.Record, key string, keyVal any) (command, bool) {
	var sets []string
	var params []drivers.Param
	n := 0
	rec.Each(func(name string, value any) bool {
		if strings.EqualFold(name, key) {
			return true
		}
		sets = append(sets, name+" = @"+fmt.Sprint(n))
		params = append(params, binder.Bind(n, value))
		n++
		return true
	})
	if len(sets) == 0 {
		return command{}, false
	}
	params = append(params, binder.Bind(n, keyVal))
	sql := "UPDATE " + table + " SET " + strings.Join(sets, ", ") +
		" WHERE " + key + " = @" + fmt.Sprint(n)
	return command{sql: sql, params: params}, true
}

// buildInsert строит INSERT. Ключевая колонка исключается из списка
// только при identity-ключе; в этом случае команда связывается с
// записью для возврата сгенерированного значения.
func buildInsert(table string, rec mapper.Record, key string, identity bool) (command, bool) {
	var cols, holders []string
	var params []drivers.Param
	n := 0
	rec.Each(func(name string, value any) bool {
		if identity && strings.EqualFold(name, key) {
			return true
		}
		cols = append(cols, name)
		holders = append(holders, "@"+fmt.Sprint(n))
		params = append(params, binder.Bind(n, value))
		n++
		return true
	})
	if len(cols) == 0 {
		// у записи нет отображаемых колонок - команды нет
		return command{}, false
	}

	cmd := command{
		sql: "INSERT INTO " + table + " (" + strings.Join(cols, ", ") +
			") VALUES (" + strings.Join(holders, ", ") + ")",
		params: params,
	}
	if identity && key != "" {
		cmd.rec = rec
		cmd.key = key
	}
	return cmd, true
}

// run выполняет Command Set: ноль команд - no-op; одна - напрямую на
// соединении без явной транзакции; две и более - в одной транзакции,
// в порядке генерации, с коммитом после успеха всех. Повторов нет:
// первая ошибка прерывает пакет, транзакция откатывается.
//
// Identity-значения записываются в записи по ходу выполнения и при
// откате пакета НЕ отменяются: уже присвоенные значения из ранних
// команд остаются в памяти (контрактная особенность, см. DESIGN.md).
func (t *Table) run(ctx context.Context, cmds []command) error {
	if len(cmds) == 0 {
		return nil
	}

	return t.db.withConn(ctx, func(conn drivers.Conn) error {
		if len(cmds) == 1 {
			cmd := cmds[0]
			if _, err := conn.Exec(ctx, cmd.sql, cmd.params); err != nil {
				return err
			}
			if cmd.rec != nil {
				return t.writeIdentity(ctx, conn, cmd)
			}
			return nil
		}

		tx, err := conn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		committed := false
		defer func() {
			if !committed {
				tx.Rollback()
			}
		}()

		for _, cmd := range cmds {
			if _, err := tx.Exec(ctx, cmd.sql, cmd.params); err != nil {
				return err
			}
			if cmd.rec != nil {
				if err := t.writeIdentity(ctx, tx, cmd); err != nil {
					return err
				}
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		committed = true
		return nil
	})
}

// writeIdentity читает последнее сгенерированное identity-значение
// (один скаляр в той же сессии) и присваивает его ключевому полю записи
func (t *Table) writeIdentity(ctx context.Context, s drivers.Session, cmd command) error {
	id, err := executor.Scalar[int64](ctx, s, t.db.drv.Dialect().IdentityQuery())
	if err != nil {
		return fmt.Errorf("failed to read generated identity: %w", err)
	}
	if !cmd.rec.Set(cmd.key, id) {
		return fmt.Errorf("failed to assign identity %d to field %s", id, cmd.key)
	}
	return nil
}

// keyFor определяет имя ключевого поля и identity-флаг для записи:
// табличная конфигурация имеет приоритет, иначе - теги типа записи
func (t *Table) keyFor(rec mapper.Record) (string, bool) {
	if t.key != "" {
		return t.key, t.identity
	}
	if typed, ok := rec.(mapper.Typed); ok {
		if k, ok := typed.Descriptor().Key(); ok {
			return k.Name, k.Identity
		}
	}
	return "", false
}

// keyValue возвращает значение ключа и признак его валидности
// (присутствует и отлично от нулевого значения типа)
func keyValue(rec mapper.Record, key string) (any, bool) {
	if key == "" {
		return nil, false
	}
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.IsZero() {
		return v, false
	}
	return v, true
}

func isNilRecord(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
