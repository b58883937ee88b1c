// Package binder конвертирует аргументы вызова в параметры драйвера,
// применяя коэрции по типам: UUID сериализуется ограниченной строкой,
// избыточный текст помечается для неограниченного хранения.
package binder

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/ruslano69/dynaq/pkg/drivers"
)

// MaxBoundedText - граница ограниченного текстового хранения.
// Строки длиннее помечаются Unbounded и должны сохраняться
// как TEXT / VARCHAR(MAX).
const MaxBoundedText = 4000

// Bind конвертирует один аргумент в параметр драйвера.
// Имя параметра - порядковый номер, совпадающий с плейсхолдером @N.
func Bind(ordinal int, value any) drivers.Param {
	p := drivers.Param{Name: strconv.Itoa(ordinal)}

	switch v := value.(type) {
	case nil:
		p.Value = nil
	case uuid.UUID:
		// UUID всегда передается строкой фиксированной длины (36),
		// независимо от нативной поддержки типа в СУБД
		p.Value = v.String()
	case *uuid.UUID:
		if v == nil {
			p.Value = nil
		} else {
			p.Value = v.String()
		}
	case string:
		p.Value = v
		if len(v) > MaxBoundedText {
			p.Unbounded = true
		}
	default:
		p.Value = value
	}

	return p
}

// BindAll конвертирует срез аргументов слева направо,
// нумеруя параметры по позиции: @0, @1, ...
func BindAll(args []any) []drivers.Param {
	if len(args) == 0 {
		return nil
	}
	params := make([]drivers.Param, len(args))
	for i, a := range args {
		params[i] = Bind(i, a)
	}
	return params
}
