package drivers

import "fmt"

// ConnectionError - ошибка установки физического соединения.
// Пул после такой ошибки остается рабочим: она относится к одному
// неудавшемуся Open, а не к пулу целиком.
type ConnectionError struct {
	Driver string // имя драйвера/диалекта
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to open %s connection: %v", e.Driver, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CommandError - драйвер отклонил SQL или параметры.
// Открытая транзакция откатывается дисциплиной scoped-транзакций вызывающего.
type CommandError struct {
	Query string
	Err   error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command failed: %v (query: %s)", e.Err, e.Query)
}

func (e *CommandError) Unwrap() error { return e.Err }
