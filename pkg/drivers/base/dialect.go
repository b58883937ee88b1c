package base

import (
	"database/sql"
	"regexp"
	"strconv"
	"strings"

	"github.com/ruslano69/dynaq/pkg/drivers"
)

// Placeholder - стиль позиционных плейсхолдеров целевого драйвера
type Placeholder int

const (
	// PlaceholderQuestion - "?" (SQLite, MySQL, ODBC)
	PlaceholderQuestion Placeholder = iota

	// PlaceholderDollar - "$1, $2, ..." (PostgreSQL)
	PlaceholderDollar

	// PlaceholderAtP - "@p0, @p1, ..." (MS SQL Server)
	PlaceholderAtP
)

// limitTailRe распознает limit-клаузу в конце текста запроса:
// "LIMIT 1", "LIMIT 5,10", "LIMIT 10 OFFSET 20"
var limitTailRe = regexp.MustCompile(`(?is)\blimit\s+\d+(\s*(,|offset)\s*\d+)?\s*;?\s*$`)

// StandardDialect реализует Dialect для СУБД со стандартным
// синтаксисом LIMIT (SQLite, PostgreSQL, MySQL, ODBC-источники)
type StandardDialect struct {
	name          string
	placeholder   Placeholder
	quoteChar     string // `"` для PostgreSQL/SQLite, "`" для MySQL
	identityQuery string
}

var _ drivers.Dialect = (*StandardDialect)(nil)

// NewStandardDialect создает StandardDialect
func NewStandardDialect(name string, ph Placeholder, quoteChar, identityQuery string) *StandardDialect {
	return &StandardDialect{
		name:          name,
		placeholder:   ph,
		quoteChar:     quoteChar,
		identityQuery: identityQuery,
	}
}

// Name возвращает имя диалекта
func (d *StandardDialect) Name() string { return d.name }

// IdentityQuery возвращает запрос последнего identity-значения
func (d *StandardDialect) IdentityQuery() string { return d.identityQuery }

// Rebind переводит плейсхолдеры @N в синтаксис драйвера
func (d *StandardDialect) Rebind(query string, params []drivers.Param) (string, []any) {
	return rewritePlaceholders(query, params, d.placeholder)
}

// LimitOne добавляет "LIMIT 1", если в конце запроса еще нет limit-клаузы
func (d *StandardDialect) LimitOne(query string) string {
	if limitTailRe.MatchString(query) {
		return query
	}
	return query + " LIMIT 1"
}

// QuoteIdentifier экранирует идентификатор
func (d *StandardDialect) QuoteIdentifier(identifier string) string {
	return d.quoteChar + identifier + d.quoteChar
}

// MSSQLDialect реализует Dialect для MS SQL Server.
// Вместо LIMIT использует TOP / OFFSET-FETCH, идентификаторы в [скобках].
type MSSQLDialect struct{}

var _ drivers.Dialect = (*MSSQLDialect)(nil)

// NewMSSQLDialect создает MSSQLDialect
func NewMSSQLDialect() *MSSQLDialect { return &MSSQLDialect{} }

// Name возвращает имя диалекта
func (d *MSSQLDialect) Name() string { return "mssql" }

// IdentityQuery возвращает запрос последнего identity-значения
func (d *MSSQLDialect) IdentityQuery() string { return "SELECT SCOPE_IDENTITY()" }

// Rebind переводит плейсхолдеры @N в @pN c именованными аргументами
func (d *MSSQLDialect) Rebind(query string, params []drivers.Param) (string, []any) {
	return rewritePlaceholders(query, params, PlaceholderAtP)
}

var (
	fetchTailRe    = regexp.MustCompile(`(?is)\bfetch\s+(first|next)\s+\d+\s+rows?\s+only\s*;?\s*$`)
	selectTopRe    = regexp.MustCompile(`(?is)^\s*select\s+top\b`)
	selectPrefixRe = regexp.MustCompile(`(?is)^(\s*select\s+)`)
)

// LimitOne вставляет TOP 1 после SELECT, если запрос еще не ограничен
func (d *MSSQLDialect) LimitOne(query string) string {
	if fetchTailRe.MatchString(query) || selectTopRe.MatchString(query) {
		return query
	}
	if selectPrefixRe.MatchString(query) {
		return selectPrefixRe.ReplaceAllString(query, "${1}TOP 1 ")
	}
	return query
}

// QuoteIdentifier экранирует идентификатор для SQL Server
func (d *MSSQLDialect) QuoteIdentifier(identifier string) string {
	return "[" + identifier + "]"
}

// rewritePlaceholders переписывает плейсхолдеры @0, @1, ... в стиль ph.
// Сканер пропускает строковые литералы, квотированные идентификаторы
// и комментарии, чтобы не трогать "@0" внутри них. Последовательность @@
// (системные переменные MS SQL) копируется как есть.
func rewritePlaceholders(query string, params []drivers.Param, ph Placeholder) (string, []any) {
	var b strings.Builder
	b.Grow(len(query) + 16)

	// Для "?" аргументы идут в порядке вхождения плейсхолдеров
	// (повторное использование @N дублирует аргумент); для $N и @pN
	// порядок вхождения не важен - аргументы передаются по номерам.
	var occurrence []any

	i := 0
	for i < len(query) {
		c := query[i]
		switch c {
		case '\'', '"', '`':
			j := skipQuoted(query, i, c)
			b.WriteString(query[i:j])
			i = j
		case '[':
			j := skipUntil(query, i+1, ']')
			b.WriteString(query[i:j])
			i = j
		case '-':
			if i+1 < len(query) && query[i+1] == '-' {
				j := skipUntil(query, i+2, '\n')
				b.WriteString(query[i:j])
				i = j
			} else {
				b.WriteByte(c)
				i++
			}
		case '/':
			if i+1 < len(query) && query[i+1] == '*' {
				j := skipBlockComment(query, i+2)
				b.WriteString(query[i:j])
				i = j
			} else {
				b.WriteByte(c)
				i++
			}
		case '@':
			if i+1 < len(query) && query[i+1] == '@' {
				b.WriteString("@@")
				i += 2
				continue
			}
			j := i + 1
			for j < len(query) && query[j] >= '0' && query[j] <= '9' {
				j++
			}
			if j == i+1 {
				// @ без номера - не наш плейсхолдер
				b.WriteByte(c)
				i++
				continue
			}
			n, _ := strconv.Atoi(query[i+1 : j])
			switch ph {
			case PlaceholderQuestion:
				b.WriteByte('?')
				if n < len(params) {
					occurrence = append(occurrence, params[n].Value)
				} else {
					occurrence = append(occurrence, nil)
				}
			case PlaceholderDollar:
				b.WriteByte('$')
				b.WriteString(strconv.Itoa(n + 1))
			case PlaceholderAtP:
				b.WriteString("@p")
				b.WriteString(strconv.Itoa(n))
			}
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}

	switch ph {
	case PlaceholderQuestion:
		return b.String(), occurrence
	case PlaceholderAtP:
		args := make([]any, len(params))
		for i, p := range params {
			args[i] = sql.Named("p"+p.Name, p.Value)
		}
		return b.String(), args
	default:
		args := make([]any, len(params))
		for i, p := range params {
			args[i] = p.Value
		}
		return b.String(), args
	}
}

// skipQuoted возвращает позицию за закрывающей кавычкой.
// Удвоенная кавычка внутри литерала ('it''s') считается экранированием.
func skipQuoted(s string, start int, quote byte) int {
	i := start + 1
	for i < len(s) {
		if s[i] == quote {
			if i+1 < len(s) && s[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return i
}

func skipUntil(s string, start int, stop byte) int {
	i := start
	for i < len(s) && s[i] != stop {
		i++
	}
	if i < len(s) {
		i++
	}
	return i
}

func skipBlockComment(s string, start int) int {
	i := start
	for i+1 < len(s) {
		if s[i] == '*' && s[i+1] == '/' {
			return i + 2
		}
		i++
	}
	return len(s)
}
