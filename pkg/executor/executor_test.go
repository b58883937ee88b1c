package executor

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/ruslano69/dynaq/pkg/drivers"
	"github.com/ruslano69/dynaq/pkg/drivers/drivertest"
	"github.com/ruslano69/dynaq/pkg/mapper"
)

type person struct {
	Id   int64  `db:"Id,key,identity"`
	Name string `db:"Name"`
	Age  int64  `db:"Age"`
}

func openConn(t *testing.T, drv *drivertest.Driver) drivers.Conn {
	t.Helper()
	conn, err := drv.Open(context.Background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return conn
}

// TestAffected проверяет выполнение команды и привязку аргументов @0, @1
func TestAffected(t *testing.T) {
	drv := drivertest.New()
	drv.Handle = func(query string, params []drivers.Param) (*drivertest.Result, error) {
		return &drivertest.Result{Affected: 3}, nil
	}
	conn := openConn(t, drv)
	defer conn.Close()

	n, err := Affected(context.Background(), conn, "DELETE FROM People WHERE Age > @0", 60)
	if err != nil {
		t.Fatalf("Affected failed: %v", err)
	}
	if n != 3 {
		t.Errorf("affected = %d, want 3", n)
	}

	calls := drv.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Query != "DELETE FROM People WHERE Age > @0" {
		t.Errorf("unexpected query: %s", calls[0].Query)
	}
	if len(calls[0].Params) != 1 || calls[0].Params[0].Name != "0" || calls[0].Params[0].Value != 60 {
		t.Errorf("unexpected params: %v", calls[0].Params)
	}
}

// TestScalar проверяет возврат первой колонки первой строки
func TestScalar(t *testing.T) {
	drv := drivertest.New()
	drv.Handle = func(query string, params []drivers.Param) (*drivertest.Result, error) {
		return &drivertest.Result{
			Columns: []string{"cnt"},
			Rows:    [][]any{{int64(42)}, {int64(99)}},
		}, nil
	}
	conn := openConn(t, drv)
	defer conn.Close()

	n, err := Scalar[int64](context.Background(), conn, "SELECT COUNT(*) FROM People")
	if err != nil {
		t.Fatalf("Scalar failed: %v", err)
	}
	if n != 42 {
		t.Errorf("scalar = %d, want 42", n)
	}
}

// TestScalar_NoRows проверяет sql.ErrNoRows на пустом результате
func TestScalar_NoRows(t *testing.T) {
	drv := drivertest.New()
	conn := openConn(t, drv)
	defer conn.Close()

	_, err := Scalar[int64](context.Background(), conn, "SELECT Id FROM People WHERE 1=0")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

// TestScalar_Casts проверяет приведение значений драйвера к целевому типу
func TestScalar_Casts(t *testing.T) {
	ctx := context.Background()

	query := func(v any) drivers.Conn {
		drv := drivertest.New()
		drv.Handle = func(string, []drivers.Param) (*drivertest.Result, error) {
			return &drivertest.Result{Columns: []string{"v"}, Rows: [][]any{{v}}}, nil
		}
		conn, _ := drv.Open(ctx)
		return conn
	}

	// int64 -> int
	if n, err := Scalar[int](ctx, query(int64(7)), "q"); err != nil || n != 7 {
		t.Errorf("int64->int: %v, %v", n, err)
	}
	// []byte -> int64 (MySQL-стиль)
	if n, err := Scalar[int64](ctx, query([]byte("15")), "q"); err != nil || n != 15 {
		t.Errorf("[]byte->int64: %v, %v", n, err)
	}
	// []byte -> string
	if s, err := Scalar[string](ctx, query([]byte("abc")), "q"); err != nil || s != "abc" {
		t.Errorf("[]byte->string: %v, %v", s, err)
	}
	// float64 -> int64
	if n, err := Scalar[int64](ctx, query(float64(3)), "q"); err != nil || n != 3 {
		t.Errorf("float64->int64: %v, %v", n, err)
	}
	// NULL -> нулевое значение
	if n, err := Scalar[int64](ctx, query(nil), "q"); err != nil || n != 0 {
		t.Errorf("nil->int64: %v, %v", n, err)
	}
	// Неприводимое значение
	_, err := Scalar[int64](ctx, query("not a number"), "q")
	var castErr *CastError
	if !errors.As(err, &castErr) {
		t.Errorf("expected CastError, got %v", err)
	}
}

// TestSingle проверяет отображение первой строки и nil на пустом результате
func TestSingle(t *testing.T) {
	ctx := context.Background()
	reg := mapper.NewRegistry()

	drv := drivertest.New()
	drv.Handle = func(string, []drivers.Param) (*drivertest.Result, error) {
		return &drivertest.Result{
			Columns: []string{"Id", "Name", "Age"},
			Rows: [][]any{
				{int64(1), "Alice", int64(32)},
				{int64(2), "Bob", int64(41)},
			},
		}, nil
	}
	conn := openConn(t, drv)
	defer conn.Close()

	p, err := Single[person](ctx, reg, conn, "SELECT * FROM People")
	if err != nil {
		t.Fatalf("Single failed: %v", err)
	}
	if p == nil || p.Id != 1 || p.Name != "Alice" || p.Age != 32 {
		t.Errorf("unexpected record: %+v", p)
	}

	empty := drivertest.New()
	econn := openConn(t, empty)
	defer econn.Close()

	p, err = Single[person](ctx, reg, econn, "SELECT * FROM People WHERE 1=0")
	if err != nil {
		t.Fatalf("Single on empty result failed: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil on empty result, got %+v", p)
	}
}

// TestAll проверяет чтение всех строк в порядке выдачи драйвером
func TestAll(t *testing.T) {
	reg := mapper.NewRegistry()
	drv := drivertest.New()
	drv.Handle = func(string, []drivers.Param) (*drivertest.Result, error) {
		return &drivertest.Result{
			Columns: []string{"Id", "Name", "Age"},
			Rows: [][]any{
				{int64(1), "Alice", int64(32)},
				{int64(2), "Bob", int64(41)},
				{int64(3), "Carol", int64(28)},
			},
		}, nil
	}
	conn := openConn(t, drv)
	defer conn.Close()

	people, err := All[person](context.Background(), reg, conn, "SELECT * FROM People")
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(people) != 3 {
		t.Fatalf("expected 3 records, got %d", len(people))
	}
	for i, name := range []string{"Alice", "Bob", "Carol"} {
		if people[i].Name != name {
			t.Errorf("record %d: name = %q, want %q", i, people[i].Name, name)
		}
	}
}

// TestAll_TypeMismatchSkipped проверяет молчаливый пропуск колонок
// с несовпавшим runtime-типом
func TestAll_TypeMismatchSkipped(t *testing.T) {
	reg := mapper.NewRegistry()
	drv := drivertest.New()
	drv.Handle = func(string, []drivers.Param) (*drivertest.Result, error) {
		return &drivertest.Result{
			Columns: []string{"Id", "Name", "Age"},
			Rows:    [][]any{{int64(1), 777, int64(32)}},
		}, nil
	}
	conn := openConn(t, drv)
	defer conn.Close()

	people, err := All[person](context.Background(), reg, conn, "SELECT * FROM People")
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if people[0].Name != "" {
		t.Errorf("mismatched column must be skipped, got %q", people[0].Name)
	}
	if people[0].Id != 1 || people[0].Age != 32 {
		t.Errorf("matched columns must be set: %+v", people[0])
	}
}

// TestAllRecords проверяет динамическое чтение с сохранением порядка колонок
func TestAllRecords(t *testing.T) {
	drv := drivertest.New()
	drv.Handle = func(string, []drivers.Param) (*drivertest.Result, error) {
		return &drivertest.Result{
			Columns: []string{"Name", "Age"},
			Rows:    [][]any{{"Alice", int64(32)}},
		}, nil
	}
	conn := openConn(t, drv)
	defer conn.Close()

	recs, err := AllRecords(context.Background(), conn, "SELECT Name, Age FROM People")
	if err != nil {
		t.Fatalf("AllRecords failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	names := recs[0].Names()
	if len(names) != 2 || names[0] != "Name" || names[1] != "Age" {
		t.Errorf("unexpected column order: %v", names)
	}
	if v, _ := recs[0].Get("age"); v != int64(32) {
		t.Errorf("Get(age) = %v", v)
	}
}

// TestSingleRecord_Empty проверяет nil на пустом результате
func TestSingleRecord_Empty(t *testing.T) {
	drv := drivertest.New()
	conn := openConn(t, drv)
	defer conn.Close()

	rec, err := SingleRecord(context.Background(), conn, "SELECT * FROM People WHERE 1=0")
	if err != nil {
		t.Fatalf("SingleRecord failed: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record, got %v", rec)
	}
}

// TestQueryError проверяет проброс ошибки команды из драйвера
func TestQueryError(t *testing.T) {
	drv := drivertest.New()
	drv.Handle = func(string, []drivers.Param) (*drivertest.Result, error) {
		return nil, errors.New("syntax error")
	}
	conn := openConn(t, drv)
	defer conn.Close()

	_, err := AllRecords(context.Background(), conn, "SELEC oops")
	var cmdErr *drivers.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if cmdErr.Query != "SELEC oops" {
		t.Errorf("command error must carry the query text: %q", cmdErr.Query)
	}
}
