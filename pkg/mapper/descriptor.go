// Package mapper отражает формы записей в дескрипторы полей и
// конвертирует строки результата в записи (чтение) и записи в пары
// имя/значение (запись). Дескриптор строится по типу один раз и
// переиспользуется всеми операциями.
package mapper

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Field - одно отображаемое поле записи
type Field struct {
	// Name - имя колонки (из тега db или имени поля)
	Name string

	// Index - индекс поля в структуре
	Index int

	// Type - объявленный тип поля
	Type reflect.Type

	// Key - поле назначено первичным ключом (тег ",key")
	Key bool

	// Identity - значение ключа генерирует БД при вставке (тег ",identity")
	Identity bool
}

// Descriptor - кэшируемая таблица полей одного типа записи.
// Неизменяем после построения, разделяется read-only всеми операциями.
type Descriptor struct {
	Type   reflect.Type
	Fields []Field

	byName   map[string]int // lower(name) -> позиция в Fields
	keyIndex int            // позиция ключевого поля, -1 если нет
	identity bool
}

// Field ищет поле по имени без учета регистра
func (d *Descriptor) Field(name string) (Field, bool) {
	i, ok := d.byName[strings.ToLower(name)]
	if !ok {
		return Field{}, false
	}
	return d.Fields[i], true
}

// Key возвращает ключевое поле, если оно назначено тегом
func (d *Descriptor) Key() (Field, bool) {
	if d.keyIndex < 0 {
		return Field{}, false
	}
	return d.Fields[d.keyIndex], true
}

// Identity сообщает, генерирует ли БД значение ключа при вставке
func (d *Descriptor) Identity() bool { return d.identity }

// TableName возвращает имя типа - имя таблицы по умолчанию
func (d *Descriptor) TableName() string { return d.Type.Name() }

// Registry - явный реестр дескрипторов, ключ - идентичность типа.
// Заполняется лениво; потокобезопасен (sync.Map, построение дескриптора
// идемпотентно, гонка построения разрешается через LoadOrStore).
type Registry struct {
	cache sync.Map // reflect.Type -> *Descriptor
}

// NewRegistry создает пустой реестр
func NewRegistry() *Registry { return &Registry{} }

var defaultRegistry = NewRegistry()

// Default возвращает реестр по умолчанию.
// Компоненты, которым нужен собственный жизненный цикл кэша
// (например, тесты), создают свой через NewRegistry.
func Default() *Registry { return defaultRegistry }

// Descriptor возвращает дескриптор типа, строя его при первом обращении
func (r *Registry) Descriptor(t reflect.Type) (*Descriptor, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("mapper: %s is not a struct type", t)
	}
	if v, ok := r.cache.Load(t); ok {
		return v.(*Descriptor), nil
	}
	d, err := buildDescriptor(t)
	if err != nil {
		return nil, err
	}
	actual, _ := r.cache.LoadOrStore(t, d)
	return actual.(*Descriptor), nil
}

// buildDescriptor отражает читаемые и записываемые (экспортируемые)
// поля один раз. Тег db управляет именем и ролью поля:
//
//	Id   int64  `db:"id,key,identity"`
//	Name string `db:"name"`
//	Temp string `db:"-"`
func buildDescriptor(t reflect.Type) (*Descriptor, error) {
	d := &Descriptor{
		Type:     t,
		byName:   make(map[string]int),
		keyIndex: -1,
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			// неэкспортируемое поле
			continue
		}

		name := sf.Name
		var key, identity bool
		if tag, ok := sf.Tag.Lookup("db"); ok {
			if tag == "-" {
				continue
			}
			for j, part := range strings.Split(tag, ",") {
				part = strings.TrimSpace(part)
				switch {
				case j == 0:
					if part != "" {
						name = part
					}
				case part == "key":
					key = true
				case part == "identity":
					identity = true
				case part == "":
					// пустая опция допустима: `db:",key"`
				default:
					return nil, fmt.Errorf("mapper: unknown db tag option %q on %s.%s", part, t, sf.Name)
				}
			}
		}

		lc := strings.ToLower(name)
		if _, dup := d.byName[lc]; dup {
			return nil, fmt.Errorf("mapper: duplicate column %q on %s", name, t)
		}

		f := Field{Name: name, Index: i, Type: sf.Type, Key: key, Identity: identity}
		d.byName[lc] = len(d.Fields)
		if key {
			if d.keyIndex >= 0 {
				return nil, fmt.Errorf("mapper: multiple key fields on %s", t)
			}
			d.keyIndex = len(d.Fields)
			d.identity = identity
		}
		d.Fields = append(d.Fields, f)
	}

	return d, nil
}
