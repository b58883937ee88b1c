// Package mysql регистрирует драйвер MySQL/MariaDB.
package mysql

import (
	"github.com/ruslano69/dynaq/pkg/drivers"
	"github.com/ruslano69/dynaq/pkg/drivers/base"

	_ "github.com/go-sql-driver/mysql"
)

const driverMysql = "mysql"

// Регистрация драйвера в глобальной фабрике
func init() {
	drivers.Register(driverMysql, func(cfg drivers.Config) (drivers.Driver, error) {
		dialect := base.NewStandardDialect(
			driverMysql,
			base.PlaceholderQuestion,
			"`",
			"SELECT LAST_INSERT_ID()",
		)
		return base.NewSQLDriver(driverMysql, dialect, cfg), nil
	})
}
