// Package mssql регистрирует драйвер MS SQL Server.
package mssql

import (
	"github.com/ruslano69/dynaq/pkg/drivers"
	"github.com/ruslano69/dynaq/pkg/drivers/base"

	_ "github.com/denisenkom/go-mssqldb"
)

// Регистрация драйвера в глобальной фабрике
func init() {
	drivers.Register("mssql", func(cfg drivers.Config) (drivers.Driver, error) {
		return base.NewSQLDriver("sqlserver", base.NewMSSQLDialect(), cfg), nil
	})
}
