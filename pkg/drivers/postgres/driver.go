// Package postgres регистрирует драйвер PostgreSQL (pgx в режиме database/sql).
package postgres

import (
	"github.com/ruslano69/dynaq/pkg/drivers"
	"github.com/ruslano69/dynaq/pkg/drivers/base"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Регистрация драйвера в глобальной фабрике
func init() {
	drivers.Register("postgres", func(cfg drivers.Config) (drivers.Driver, error) {
		dialect := base.NewStandardDialect(
			"postgres",
			base.PlaceholderDollar,
			`"`,
			// LASTVAL читает последнее значение, выданное любой
			// sequence в текущей сессии; соединение монопольно
			// принадлежит вызову, поэтому гонок по сессии нет
			"SELECT LASTVAL()",
		)
		return base.NewSQLDriver("pgx", dialect, cfg), nil
	})
}
