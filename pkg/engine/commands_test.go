package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ruslano69/dynaq/pkg/drivers"
	"github.com/ruslano69/dynaq/pkg/drivers/drivertest"
	"github.com/ruslano69/dynaq/pkg/mapper"
)

type Person struct {
	Id   int64  `db:"Id,key,identity"`
	Name string `db:"Name"`
	Age  int64  `db:"Age"`
}

// identityHandle отвечает на identity-запрос фейкового диалекта
// монотонно растущими значениями, на остальные команды - пустым успехом
func identityHandle(next *int64) func(string, []drivers.Param) (*drivertest.Result, error) {
	return func(query string, params []drivers.Param) (*drivertest.Result, error) {
		if query == "SELECT LAST_IDENTITY()" {
			*next++
			return &drivertest.Result{Columns: []string{"id"}, Rows: [][]any{{*next}}}, nil
		}
		return &drivertest.Result{Affected: 1}, nil
	}
}

// TestSave_InsertIdentity проверяет вывод INSERT для записи без ключа:
// identity-колонка исключена, сгенерированное значение вернулось в запись
func TestSave_InsertIdentity(t *testing.T) {
	drv := drivertest.New()
	var next int64 = 100
	drv.Handle = identityHandle(&next)
	db := NewDB(drv)
	defer db.Close()

	tbl, err := TableFor[Person](db)
	if err != nil {
		t.Fatal(err)
	}

	p := &Person{Name: "Alice", Age: 32}
	if err := tbl.Save(context.Background(), p); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	calls := drv.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected insert + identity query, got %d calls", len(calls))
	}
	if calls[0].Query != "INSERT INTO Person (Name, Age) VALUES (@0, @1)" {
		t.Errorf("insert = %q", calls[0].Query)
	}
	if calls[0].Params[0].Value != "Alice" || calls[0].Params[1].Value != int64(32) {
		t.Errorf("unexpected params: %v", calls[0].Params)
	}
	if p.Id != 101 {
		t.Errorf("identity write-back: Id = %d, want 101", p.Id)
	}
	// Одна команда - без явной транзакции
	if drv.Begins() != 0 {
		t.Errorf("single command must not open a transaction, begins = %d", drv.Begins())
	}
}

// TestSave_Update проверяет вывод UPDATE для записи с ненулевым ключом:
// ключ исключен из SET и использован в WHERE
func TestSave_Update(t *testing.T) {
	drv := drivertest.New()
	db := NewDB(drv)
	defer db.Close()

	tbl, err := TableFor[Person](db)
	if err != nil {
		t.Fatal(err)
	}

	p := &Person{Id: 7, Name: "Alice", Age: 33}
	if err := tbl.Save(context.Background(), p); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	calls := drv.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Query != "UPDATE Person SET Name = @0, Age = @1 WHERE Id = @2" {
		t.Errorf("update = %q", calls[0].Query)
	}
	if calls[0].Params[2].Value != int64(7) {
		t.Errorf("key param = %v, want 7", calls[0].Params[2].Value)
	}
}

// TestSave_NonIdentityInsert проверяет, что при identity=false ключевая
// колонка входит в INSERT и identity-запрос не выполняется
func TestSave_NonIdentityInsert(t *testing.T) {
	drv := drivertest.New()
	db := NewDB(drv)
	defer db.Close()

	tbl := db.Table("Codes").Key("Code").Identity(false)

	rec := mapper.NewDynamicRecord()
	rec.Set("Code", "") // нулевое значение - ключ не задан, будет INSERT
	rec.Set("Title", "draft")
	if err := tbl.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	calls := drv.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Query != "INSERT INTO Codes (Code, Title) VALUES (@0, @1)" {
		t.Errorf("insert = %q", calls[0].Query)
	}
}

// TestSave_Batch проверяет пакет из нескольких команд: одна транзакция,
// порядок генерации, identity-возврат каждой вставке, коммит
func TestSave_Batch(t *testing.T) {
	drv := drivertest.New()
	var next int64
	drv.Handle = identityHandle(&next)
	db := NewDB(drv)
	defer db.Close()

	tbl, err := TableFor[Person](db)
	if err != nil {
		t.Fatal(err)
	}

	alice := &Person{Name: "Alice"}
	bob := &Person{Id: 5, Name: "Bob"} // update
	carol := &Person{Name: "Carol"}
	if err := tbl.Save(context.Background(), alice, bob, carol); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if drv.Begins() != 1 || drv.Commits() != 1 || drv.Rollbacks() != 0 {
		t.Errorf("tx counters: begins=%d commits=%d rollbacks=%d",
			drv.Begins(), drv.Commits(), drv.Rollbacks())
	}

	calls := drv.Calls()
	// insert(alice) + identity + update(bob) + insert(carol) + identity
	if len(calls) != 5 {
		t.Fatalf("expected 5 calls, got %d", len(calls))
	}
	for i, c := range calls {
		if !c.InTx {
			t.Errorf("call %d (%s) executed outside the transaction", i, c.Query)
		}
	}
	if !strings.HasPrefix(calls[0].Query, "INSERT") ||
		!strings.HasPrefix(calls[2].Query, "UPDATE") ||
		!strings.HasPrefix(calls[3].Query, "INSERT") {
		t.Errorf("unexpected command order: %+v", calls)
	}

	if alice.Id != 1 || carol.Id != 2 {
		t.Errorf("identity write-back: alice=%d carol=%d", alice.Id, carol.Id)
	}
	if bob.Id != 5 {
		t.Errorf("update must not touch the key, bob=%d", bob.Id)
	}
}

// TestSave_BatchRollback проверяет откат пакета при ошибке и сохранение
// уже присвоенных identity-значений в памяти
func TestSave_BatchRollback(t *testing.T) {
	drv := drivertest.New()
	var next int64
	inner := identityHandle(&next)
	drv.Handle = func(query string, params []drivers.Param) (*drivertest.Result, error) {
		if strings.HasPrefix(query, "INSERT") && next >= 1 {
			return nil, errors.New("constraint violation")
		}
		return inner(query, params)
	}
	db := NewDB(drv)
	defer db.Close()

	tbl, err := TableFor[Person](db)
	if err != nil {
		t.Fatal(err)
	}

	alice := &Person{Name: "Alice"}
	carol := &Person{Name: "Carol"}
	err = tbl.Save(context.Background(), alice, carol)
	var cmdErr *drivers.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %v", err)
	}

	if drv.Commits() != 0 || drv.Rollbacks() != 1 {
		t.Errorf("tx counters: commits=%d rollbacks=%d", drv.Commits(), drv.Rollbacks())
	}
	// Значение из успешной ранней команды остается в записи
	if alice.Id != 1 {
		t.Errorf("alice.Id = %d, want 1 (retained after rollback)", alice.Id)
	}
	if carol.Id != 0 {
		t.Errorf("carol.Id = %d, want 0", carol.Id)
	}
}

// TestSave_SkipsEmptyAndNil проверяет пропуск nil-записей и записей
// без отображаемых колонок
func TestSave_SkipsEmptyAndNil(t *testing.T) {
	drv := drivertest.New()
	db := NewDB(drv)
	defer db.Close()

	tbl := db.Table("People").Key("Id").Identity(true)

	if err := tbl.Save(context.Background()); err != nil {
		t.Fatalf("empty Save must be a no-op: %v", err)
	}
	if err := tbl.Save(context.Background(), nil, (*Person)(nil), mapper.NewDynamicRecord()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if len(drv.Calls()) != 0 {
		t.Errorf("no commands expected, got %v", drv.Calls())
	}
}

// TestDelete проверяет вывод DELETE по ключу и пропуск записей
// с нулевым ключом
func TestDelete(t *testing.T) {
	drv := drivertest.New()
	db := NewDB(drv)
	defer db.Close()

	tbl, err := TableFor[Person](db)
	if err != nil {
		t.Fatal(err)
	}

	keyed := &Person{Id: 9, Name: "Alice"}
	unkeyed := &Person{Name: "Ghost"}
	if err := tbl.Delete(context.Background(), keyed, unkeyed); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	calls := drv.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Query != "DELETE FROM Person WHERE Id = @0" {
		t.Errorf("delete = %q", calls[0].Query)
	}
	if calls[0].Params[0].Value != int64(9) {
		t.Errorf("key param = %v", calls[0].Params[0].Value)
	}
	// Одна команда - без транзакции
	if drv.Begins() != 0 {
		t.Errorf("begins = %d, want 0", drv.Begins())
	}
}

// TestSave_DynamicRecord проверяет сохранение динамической записи
// с табличной конфигурацией ключа
func TestSave_DynamicRecord(t *testing.T) {
	drv := drivertest.New()
	var next int64 = 10
	drv.Handle = identityHandle(&next)
	db := NewDB(drv)
	defer db.Close()

	tbl := db.Table("People").Key("Id").Identity(true)

	rec := mapper.NewDynamicRecord()
	rec.Set("Name", "Dyn")
	rec.Set("Age", int64(20))
	if err := tbl.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	calls := drv.Calls()
	if calls[0].Query != "INSERT INTO People (Name, Age) VALUES (@0, @1)" {
		t.Errorf("insert = %q", calls[0].Query)
	}
	if id, ok := rec.Get("Id"); !ok || id != int64(11) {
		t.Errorf("identity write-back into dynamic record: %v, %v", id, ok)
	}
}
