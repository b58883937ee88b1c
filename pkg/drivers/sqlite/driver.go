// Package sqlite регистрирует драйвер SQLite (modernc.org/sqlite, без cgo).
package sqlite

import (
	"github.com/ruslano69/dynaq/pkg/drivers"
	"github.com/ruslano69/dynaq/pkg/drivers/base"

	_ "modernc.org/sqlite"
)

const driverSqlite = "sqlite"

// Регистрация драйвера в глобальной фабрике
func init() {
	drivers.Register(driverSqlite, func(cfg drivers.Config) (drivers.Driver, error) {
		dialect := base.NewStandardDialect(
			driverSqlite,
			base.PlaceholderQuestion,
			`"`,
			"SELECT last_insert_rowid()",
		)
		return base.NewSQLDriver(driverSqlite, dialect, cfg), nil
	})
}
