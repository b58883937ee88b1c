// Package pool реализует пул физических соединений с ограниченным
// ростом. Соединение либо монопольно принадлежит вызывающему, либо
// простаивает в пуле; одновременный доступ двух вызывающих к одному
// соединению исключен передачей владения на Acquire/Release.
package pool

import (
	"context"
	"errors"
	"sync"

	"github.com/ruslano69/dynaq/pkg/drivers"
)

// ErrDisposed возвращается из Acquire после Shutdown пула
var ErrDisposed = errors.New("pool: pool is disposed")

// Pool - кэш простаивающих соединений одного драйвера.
// Мутация кэша, проверка флага disposed и добавление/изъятие защищены
// одним мьютексом; ожидание ввода-вывода (физическое открытие)
// никогда не происходит под этим мьютексом.
type Pool struct {
	drv drivers.Driver

	mu       sync.Mutex
	idle     []drivers.Conn
	disposed bool
}

// New создает пул поверх драйвера
func New(drv drivers.Driver) *Pool {
	return &Pool{drv: drv}
}

// Acquire выдает соединение: простаивающее из кэша, если есть,
// иначе открывает новое физическое. Ошибка открытия
// (*drivers.ConnectionError) не выводит пул из строя.
func (p *Pool) Acquire(ctx context.Context) (drivers.Conn, error) {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return nil, ErrDisposed
	}
	if n := len(p.idle); n > 0 {
		conn := p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return conn, nil
	}
	p.mu.Unlock()

	// Физическое открытие - вне мьютекса
	conn, err := p.drv.Open(ctx)
	if err != nil {
		return nil, err
	}

	// Пул могли закрыть, пока открывалось соединение.
	// Ничья разрешается в пользу закрытия: новое соединение гасим.
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		conn.Close()
		return nil, ErrDisposed
	}
	p.mu.Unlock()

	return conn, nil
}

// Release возвращает соединение пулу. Открытое соединение попадает
// в кэш простаивающих; если пул уже закрыт - соединение закрывается.
// Вызов с уже закрытым соединением безопасен и ничего не делает.
func (p *Pool) Release(conn drivers.Conn) {
	if conn == nil || !conn.IsOpen() {
		return
	}

	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		conn.Close()
		return
	}
	p.idle = append(p.idle, conn)
	p.mu.Unlock()
}

// Shutdown атомарно помечает пул закрытым и закрывает каждое
// простаивающее соединение ровно один раз. Идемпотентен.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	for _, conn := range idle {
		conn.Close()
	}
}

// IdleCount возвращает текущее количество простаивающих соединений
func (p *Pool) IdleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Disposed сообщает, закрыт ли пул
func (p *Pool) Disposed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disposed
}
