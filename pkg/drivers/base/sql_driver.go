package base

import (
	"context"
	"database/sql"
	"sync"

	"github.com/ruslano69/dynaq/pkg/drivers"
)

// SQLDriver - общая реализация drivers.Driver поверх database/sql.
// Пакеты-провайдеры подключают конкретный драйвер (modernc.org/sqlite,
// pgx, go-sql-driver/mysql, go-mssqldb, odbc) и отдают сюда его имя и диалект.
type SQLDriver struct {
	driverName string
	dialect    drivers.Dialect
	cfg        drivers.Config

	mu sync.Mutex
	db *sql.DB
}

var _ drivers.Driver = (*SQLDriver)(nil)

// NewSQLDriver создает SQLDriver. Подключение к БД откладывается
// до первого Open.
func NewSQLDriver(driverName string, dialect drivers.Dialect, cfg drivers.Config) *SQLDriver {
	return &SQLDriver{
		driverName: driverName,
		dialect:    dialect,
		cfg:        cfg,
	}
}

// Dialect возвращает диалект целевой СУБД
func (d *SQLDriver) Dialect() drivers.Dialect { return d.dialect }

func (d *SQLDriver) ensureDB() (*sql.DB, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		return d.db, nil
	}

	db, err := sql.Open(d.driverName, d.cfg.DSN)
	if err != nil {
		return nil, err
	}

	// Простаивающими соединениями управляет пул уровнем выше,
	// поэтому database/sql их не кэширует: Close у выданного
	// соединения физически его закрывает.
	db.SetMaxIdleConns(0)
	if d.cfg.MaxConns > 0 {
		db.SetMaxOpenConns(d.cfg.MaxConns)
	}

	d.db = db
	return db, nil
}

// Open устанавливает новое физическое соединение
func (d *SQLDriver) Open(ctx context.Context) (drivers.Conn, error) {
	db, err := d.ensureDB()
	if err != nil {
		return nil, &drivers.ConnectionError{Driver: d.dialect.Name(), Err: err}
	}

	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, &drivers.ConnectionError{Driver: d.dialect.Name(), Err: err}
	}

	// Проверяем, что соединение действительно живое
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, &drivers.ConnectionError{Driver: d.dialect.Name(), Err: err}
	}

	// Схема по умолчанию устанавливается на сессию, если СУБД
	// это поддерживает (PostgreSQL: search_path)
	if stmt := schemaStatement(d.dialect, d.cfg.Schema); stmt != "" {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			conn.Close()
			return nil, &drivers.ConnectionError{Driver: d.dialect.Name(), Err: err}
		}
	}

	return &SQLConn{conn: conn, dialect: d.dialect}, nil
}

// schemaStatement возвращает команду установки схемы по умолчанию
// для текущей сессии, либо пустую строку, если СУБД не поддерживает
// сессионную смену схемы (тогда Schema игнорируется, как у MySQL/SQLite)
func schemaStatement(dialect drivers.Dialect, schema string) string {
	if schema == "" {
		return ""
	}
	if dialect.Name() == "postgres" {
		return "SET search_path TO " + dialect.QuoteIdentifier(schema)
	}
	return ""
}

// Close освобождает общие ресурсы драйвера
func (d *SQLDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// sqlExecer - общая поверхность *sql.Conn и *sql.Tx
type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func execOn(ctx context.Context, e sqlExecer, dialect drivers.Dialect, query string, params []drivers.Param) (int64, error) {
	bound, args := dialect.Rebind(query, params)
	res, err := e.ExecContext(ctx, bound, args...)
	if err != nil {
		return 0, &drivers.CommandError{Query: query, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Драйвер не сообщает количество затронутых строк
		return 0, nil
	}
	return n, nil
}

func queryOn(ctx context.Context, e sqlExecer, dialect drivers.Dialect, query string, params []drivers.Param) (drivers.Rows, error) {
	bound, args := dialect.Rebind(query, params)
	rows, err := e.QueryContext(ctx, bound, args...)
	if err != nil {
		return nil, &drivers.CommandError{Query: query, Err: err}
	}
	return &SQLRows{rows: rows}, nil
}

// SQLConn - физическое соединение поверх *sql.Conn
type SQLConn struct {
	conn    *sql.Conn
	dialect drivers.Dialect

	mu     sync.Mutex
	closed bool
}

var _ drivers.Conn = (*SQLConn)(nil)

// IsOpen сообщает, живо ли соединение
func (c *SQLConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Close навсегда закрывает соединение. Повторный вызов безопасен.
func (c *SQLConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}

// Exec выполняет команду без результирующих строк
func (c *SQLConn) Exec(ctx context.Context, query string, params []drivers.Param) (int64, error) {
	return execOn(ctx, c.conn, c.dialect, query, params)
}

// Query выполняет команду и возвращает reader строк
func (c *SQLConn) Query(ctx context.Context, query string, params []drivers.Param) (drivers.Rows, error) {
	return queryOn(ctx, c.conn, c.dialect, query, params)
}

// Begin начинает транзакцию на этом соединении
func (c *SQLConn) Begin(ctx context.Context) (drivers.Tx, error) {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, &drivers.CommandError{Query: "BEGIN", Err: err}
	}
	return &SQLTx{tx: tx, dialect: c.dialect}, nil
}

// SQLTx - транзакция поверх *sql.Tx
type SQLTx struct {
	tx      *sql.Tx
	dialect drivers.Dialect
}

var _ drivers.Tx = (*SQLTx)(nil)

// Exec выполняет команду в транзакции
func (t *SQLTx) Exec(ctx context.Context, query string, params []drivers.Param) (int64, error) {
	return execOn(ctx, t.tx, t.dialect, query, params)
}

// Query выполняет запрос в транзакции
func (t *SQLTx) Query(ctx context.Context, query string, params []drivers.Param) (drivers.Rows, error) {
	return queryOn(ctx, t.tx, t.dialect, query, params)
}

// Commit фиксирует транзакцию
func (t *SQLTx) Commit() error { return t.tx.Commit() }

// Rollback откатывает транзакцию
func (t *SQLTx) Rollback() error { return t.tx.Rollback() }

// SQLRows - reader строк поверх *sql.Rows
type SQLRows struct {
	rows   *sql.Rows
	cols   []string
	closed bool
}

var _ drivers.Rows = (*SQLRows)(nil)

// Columns возвращает имена колонок результата
func (r *SQLRows) Columns() ([]string, error) {
	if r.cols != nil {
		return r.cols, nil
	}
	cols, err := r.rows.Columns()
	if err != nil {
		return nil, err
	}
	r.cols = cols
	return cols, nil
}

// Next переходит к следующей строке
func (r *SQLRows) Next() bool { return r.rows.Next() }

// Values возвращает значения текущей строки в порядке колонок
func (r *SQLRows) Values() ([]any, error) {
	cols, err := r.Columns()
	if err != nil {
		return nil, err
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return vals, nil
}

// Err возвращает ошибку итерации
func (r *SQLRows) Err() error { return r.rows.Err() }

// Close освобождает reader. Повторный вызов безопасен.
func (r *SQLRows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.rows.Close()
}
