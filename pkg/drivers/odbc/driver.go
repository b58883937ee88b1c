// Package odbc регистрирует универсальный ODBC-драйвер.
// Используется для источников без нативного Go-драйвера (MS Access,
// старые версии MS SQL, специализированные СУБД).
package odbc

import (
	"github.com/ruslano69/dynaq/pkg/drivers"
	"github.com/ruslano69/dynaq/pkg/drivers/base"

	_ "github.com/alexbrainman/odbc"
)

const driverOdbc = "odbc"

// Регистрация драйвера в глобальной фабрике
func init() {
	drivers.Register(driverOdbc, func(cfg drivers.Config) (drivers.Driver, error) {
		dialect := base.NewStandardDialect(
			driverOdbc,
			base.PlaceholderQuestion,
			`"`,
			// @@IDENTITY - наиболее переносимый вариант для ODBC-источников
			"SELECT @@IDENTITY",
		)
		return base.NewSQLDriver(driverOdbc, dialect, cfg), nil
	})
}
