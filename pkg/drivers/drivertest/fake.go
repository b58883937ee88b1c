// Package drivertest содержит фейковый in-memory драйвер для unit-тестов
// пула, исполнителя и движка персистентности. Фейк записывает каждую
// выполненную команду и позволяет тесту управлять результатами через Handle.
package drivertest

import (
	"context"
	"errors"
	"sync"

	"github.com/ruslano69/dynaq/pkg/drivers"
	"github.com/ruslano69/dynaq/pkg/drivers/base"
)

// Call - одна выполненная команда
type Call struct {
	Query  string
	Params []drivers.Param
	InTx   bool
}

// Result - результат, который Handle возвращает на команду
type Result struct {
	Columns  []string
	Rows     [][]any
	Affected int64
}

// Driver - фейковый драйвер. Текст запросов доходит до Handle
// без переписывания плейсхолдеров, поэтому тесты проверяют
// сгенерированный SQL в исходном виде (@0, @1, ...).
type Driver struct {
	// OpenErr - если задано, Open возвращает эту ошибку
	OpenErr error

	// Handle обрабатывает каждую команду. nil - пустой результат.
	Handle func(query string, params []drivers.Param) (*Result, error)

	mu        sync.Mutex
	opened    int
	closed    int
	begins    int
	commits   int
	rollbacks int
	calls     []Call

	dialect drivers.Dialect
}

var _ drivers.Driver = (*Driver)(nil)

// New создает фейковый драйвер
func New() *Driver {
	return &Driver{
		dialect: base.NewStandardDialect("fake", base.PlaceholderQuestion, `"`, "SELECT LAST_IDENTITY()"),
	}
}

// Open выдает новое фейковое соединение
func (d *Driver) Open(ctx context.Context) (drivers.Conn, error) {
	if d.OpenErr != nil {
		return nil, &drivers.ConnectionError{Driver: "fake", Err: d.OpenErr}
	}
	d.mu.Lock()
	d.opened++
	d.mu.Unlock()
	return &Conn{drv: d, open: true}, nil
}

// Dialect возвращает стандартный диалект (LIMIT, плейсхолдеры "?")
func (d *Driver) Dialect() drivers.Dialect { return d.dialect }

// Close освобождает ресурсы драйвера (для фейка - no-op)
func (d *Driver) Close() error { return nil }

// OpenCount возвращает количество открытых физических соединений
func (d *Driver) OpenCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

// CloseCount возвращает количество закрытых соединений
func (d *Driver) CloseCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Begins возвращает количество открытых транзакций
func (d *Driver) Begins() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.begins
}

// Commits возвращает количество зафиксированных транзакций
func (d *Driver) Commits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commits
}

// Rollbacks возвращает количество откаченных транзакций
func (d *Driver) Rollbacks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rollbacks
}

// Calls возвращает копию журнала выполненных команд
func (d *Driver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Call, len(d.calls))
	copy(out, d.calls)
	return out
}

func (d *Driver) record(query string, params []drivers.Param, inTx bool) (*Result, error) {
	d.mu.Lock()
	d.calls = append(d.calls, Call{Query: query, Params: params, InTx: inTx})
	handle := d.Handle
	d.mu.Unlock()

	if handle == nil {
		return &Result{}, nil
	}
	res, err := handle(query, params)
	if err != nil {
		return nil, &drivers.CommandError{Query: query, Err: err}
	}
	if res == nil {
		res = &Result{}
	}
	return res, nil
}

// Conn - фейковое соединение
type Conn struct {
	drv *Driver

	mu   sync.Mutex
	open bool
}

var _ drivers.Conn = (*Conn)(nil)

// IsOpen сообщает, живо ли соединение
func (c *Conn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Close закрывает соединение. Повторный вызов не учитывается в счетчике.
func (c *Conn) Close() error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return nil
	}
	c.open = false
	c.mu.Unlock()

	c.drv.mu.Lock()
	c.drv.closed++
	c.drv.mu.Unlock()
	return nil
}

// Exec выполняет команду через Handle
func (c *Conn) Exec(ctx context.Context, query string, params []drivers.Param) (int64, error) {
	res, err := c.drv.record(query, params, false)
	if err != nil {
		return 0, err
	}
	return res.Affected, nil
}

// Query выполняет запрос через Handle
func (c *Conn) Query(ctx context.Context, query string, params []drivers.Param) (drivers.Rows, error) {
	res, err := c.drv.record(query, params, false)
	if err != nil {
		return nil, err
	}
	return &Rows{cols: res.Columns, data: res.Rows}, nil
}

// Begin начинает фейковую транзакцию
func (c *Conn) Begin(ctx context.Context) (drivers.Tx, error) {
	if !c.IsOpen() {
		return nil, errors.New("drivertest: begin on closed connection")
	}
	c.drv.mu.Lock()
	c.drv.begins++
	c.drv.mu.Unlock()
	return &Tx{drv: c.drv}, nil
}

// Tx - фейковая транзакция
type Tx struct {
	drv  *Driver
	done bool
}

var _ drivers.Tx = (*Tx)(nil)

// Exec выполняет команду в транзакции
func (t *Tx) Exec(ctx context.Context, query string, params []drivers.Param) (int64, error) {
	res, err := t.drv.record(query, params, true)
	if err != nil {
		return 0, err
	}
	return res.Affected, nil
}

// Query выполняет запрос в транзакции
func (t *Tx) Query(ctx context.Context, query string, params []drivers.Param) (drivers.Rows, error) {
	res, err := t.drv.record(query, params, true)
	if err != nil {
		return nil, err
	}
	return &Rows{cols: res.Columns, data: res.Rows}, nil
}

// Commit фиксирует транзакцию
func (t *Tx) Commit() error {
	if t.done {
		return errors.New("drivertest: transaction already finished")
	}
	t.done = true
	t.drv.mu.Lock()
	t.drv.commits++
	t.drv.mu.Unlock()
	return nil
}

// Rollback откатывает транзакцию. Повторный Rollback после Commit - no-op,
// как у database/sql (ErrTxDone здесь не эмулируется).
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.drv.mu.Lock()
	t.drv.rollbacks++
	t.drv.mu.Unlock()
	return nil
}

// Rows - фейковый reader строк
type Rows struct {
	cols []string
	data [][]any
	i    int
}

var _ drivers.Rows = (*Rows)(nil)

// Columns возвращает имена колонок
func (r *Rows) Columns() ([]string, error) { return r.cols, nil }

// Next переходит к следующей строке
func (r *Rows) Next() bool {
	if r.i >= len(r.data) {
		return false
	}
	r.i++
	return true
}

// Values возвращает значения текущей строки
func (r *Rows) Values() ([]any, error) {
	if r.i == 0 || r.i > len(r.data) {
		return nil, errors.New("drivertest: Values called without Next")
	}
	return r.data[r.i-1], nil
}

// Err возвращает ошибку итерации
func (r *Rows) Err() error { return nil }

// Close освобождает reader
func (r *Rows) Close() error { return nil }
