// Package executor строит по одной команде на вызов и приводит
// результат к одной из четырех форм: количество затронутых строк,
// скаляр, одна запись, список записей. Текст SQL передается как есть,
// позиционные аргументы связываются слева направо параметрами @0, @1, ...
//
// Reader всегда освобождается на каждом пути выхода, включая ошибки.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strconv"

	"github.com/ruslano69/dynaq/pkg/binder"
	"github.com/ruslano69/dynaq/pkg/drivers"
	"github.com/ruslano69/dynaq/pkg/mapper"
)

// CastError - значение скаляра не приводится к запрошенному типу
type CastError struct {
	Value  any
	Target string
}

func (e *CastError) Error() string {
	return fmt.Sprintf("cannot cast %T (%v) to %s", e.Value, e.Value, e.Target)
}

// Affected выполняет команду без результата и возвращает
// количество затронутых строк
func Affected(ctx context.Context, s drivers.Session, query string, args ...any) (int64, error) {
	return s.Exec(ctx, query, binder.BindAll(args))
}

// Scalar выполняет запрос и возвращает первую колонку первой строки,
// приведенную к T. Если строк нет - sql.ErrNoRows.
func Scalar[T any](ctx context.Context, s drivers.Session, query string, args ...any) (out T, err error) {
	rows, err := s.Query(ctx, query, binder.BindAll(args))
	if err != nil {
		return out, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if !rows.Next() {
		if ne := rows.Err(); ne != nil {
			return out, ne
		}
		return out, sql.ErrNoRows
	}
	vals, err := rows.Values()
	if err != nil {
		return out, err
	}
	if len(vals) == 0 {
		return out, fmt.Errorf("executor: query returned zero columns")
	}
	return castScalar[T](vals[0])
}

// Single выполняет запрос и возвращает первую строку, отображенную в T,
// либо nil, если строк нет
func Single[T any](ctx context.Context, reg *mapper.Registry, s drivers.Session, query string, args ...any) (out *T, err error) {
	rows, err := s.Query(ctx, query, binder.BindAll(args))
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if !rows.Next() {
		return nil, rows.Err()
	}
	v, err := scanRow[T](reg, rows)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// All выполняет запрос и возвращает все строки в порядке чтения
func All[T any](ctx context.Context, reg *mapper.Registry, s drivers.Session, query string, args ...any) (out []T, err error) {
	rows, err := s.Query(ctx, query, binder.BindAll(args))
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for rows.Next() {
		v, scanErr := scanRow[T](reg, rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, *v)
	}
	if ne := rows.Err(); ne != nil {
		return nil, ne
	}
	return out, nil
}

// SingleRecord возвращает первую строку динамической записью,
// либо nil, если строк нет
func SingleRecord(ctx context.Context, s drivers.Session, query string, args ...any) (out *mapper.DynamicRecord, err error) {
	rows, err := s.Query(ctx, query, binder.BindAll(args))
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanDynamic(rows)
}

// AllRecords возвращает все строки динамическими записями
func AllRecords(ctx context.Context, s drivers.Session, query string, args ...any) (out []*mapper.DynamicRecord, err error) {
	rows, err := s.Query(ctx, query, binder.BindAll(args))
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for rows.Next() {
		rec, scanErr := scanDynamic(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, rec)
	}
	if ne := rows.Err(); ne != nil {
		return nil, ne
	}
	return out, nil
}

func scanRow[T any](reg *mapper.Registry, rows drivers.Rows) (*T, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	vals, err := rows.Values()
	if err != nil {
		return nil, err
	}

	v := new(T)
	rec, err := mapper.Of(v, reg)
	if err != nil {
		return nil, err
	}
	mapper.FromRow(rec, cols, vals)
	return v, nil
}

func scanDynamic(rows drivers.Rows) (*mapper.DynamicRecord, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	vals, err := rows.Values()
	if err != nil {
		return nil, err
	}
	rec := mapper.NewDynamicRecord()
	mapper.FromRow(rec, cols, vals)
	return rec, nil
}

// castScalar приводит значение драйвера к T: точное совпадение,
// числовая конверсия, []byte/строка в число или строку.
// NULL приводится к нулевому значению T.
func castScalar[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	if t, ok := v.(T); ok {
		return t, nil
	}

	tt := reflect.TypeOf(zero)
	if tt == nil {
		// T = any, но type assertion выше не сработала - недостижимо
		return zero, &CastError{Value: v, Target: "any"}
	}

	sv := reflect.ValueOf(v)

	// Числовая конверсия (int64 -> int, float64 -> int64 и т.д.)
	if isNumeric(sv.Kind()) && isNumeric(tt.Kind()) {
		return sv.Convert(tt).Interface().(T), nil
	}

	// Некоторые драйверы отдают числа и строки как []byte
	var s string
	switch raw := v.(type) {
	case []byte:
		s = string(raw)
	case string:
		s = raw
	default:
		return zero, &CastError{Value: v, Target: tt.String()}
	}

	switch tt.Kind() {
	case reflect.String:
		return reflect.ValueOf(s).Convert(tt).Interface().(T), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return zero, &CastError{Value: v, Target: tt.String()}
		}
		return reflect.ValueOf(n).Convert(tt).Interface().(T), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return zero, &CastError{Value: v, Target: tt.String()}
		}
		return reflect.ValueOf(n).Convert(tt).Interface().(T), nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return zero, &CastError{Value: v, Target: tt.String()}
		}
		return reflect.ValueOf(f).Convert(tt).Interface().(T), nil
	}

	return zero, &CastError{Value: v, Target: tt.String()}
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
