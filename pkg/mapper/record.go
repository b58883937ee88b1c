package mapper

import (
	"fmt"
	"reflect"
	"strings"
)

// Record - единая способность "запись": чтение поля по имени, запись
// поля по имени, перечисление полей. Движок персистентности написан
// один раз против этой способности; реализации - типизированная
// структура и динамическая запись.
type Record interface {
	// Get возвращает значение поля по имени (без учета регистра)
	Get(name string) (any, bool)

	// Set записывает значение поля по имени.
	// Возвращает false, если поле не найдено или значение несовместимо.
	Set(name string, value any) bool

	// Each вызывает fn для каждой пары имя/значение в порядке дескриптора.
	// Возврат false прерывает перечисление.
	Each(fn func(name string, value any) bool)
}

// Typed - запись, знающая свой дескриптор (типизированные структуры)
type Typed interface {
	Descriptor() *Descriptor
}

// Of оборачивает структуру в Record. Для записи изменений обратно
// (identity write-back) значение должно быть указателем на структуру;
// не-указатель оборачивается через адресуемую копию, и изменения
// остаются в копии.
func Of(v any, reg *Registry) (Record, error) {
	if v == nil {
		return nil, fmt.Errorf("mapper: nil record")
	}
	if r, ok := v.(Record); ok {
		return r, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("mapper: nil record pointer")
		}
		rv = rv.Elem()
	} else {
		tmp := reflect.New(rv.Type())
		tmp.Elem().Set(rv)
		rv = tmp.Elem()
	}

	desc, err := reg.Descriptor(rv.Type())
	if err != nil {
		return nil, err
	}
	return &structRecord{v: rv, desc: desc}, nil
}

// structRecord - типизированная запись поверх структуры
type structRecord struct {
	v    reflect.Value // адресуемое значение структуры
	desc *Descriptor
}

var (
	_ Record = (*structRecord)(nil)
	_ Typed  = (*structRecord)(nil)
)

// Descriptor возвращает дескриптор типа записи
func (r *structRecord) Descriptor() *Descriptor { return r.desc }

// Get возвращает значение поля по имени
func (r *structRecord) Get(name string) (any, bool) {
	f, ok := r.desc.Field(name)
	if !ok {
		return nil, false
	}
	return r.v.Field(f.Index).Interface(), true
}

// Set записывает значение поля. Допустимо точное совпадение типа
// либо конверсия между числовыми типами (нужна для identity write-back:
// драйвер отдает int64, поле может быть int/int32/uint и т.д.).
func (r *structRecord) Set(name string, value any) bool {
	f, ok := r.desc.Field(name)
	if !ok {
		return false
	}
	fv := r.v.Field(f.Index)
	if value == nil {
		switch fv.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
			fv.Set(reflect.Zero(fv.Type()))
			return true
		}
		return false
	}

	sv := reflect.ValueOf(value)
	if sv.Type().AssignableTo(fv.Type()) {
		fv.Set(sv)
		return true
	}
	if isNumericKind(sv.Kind()) && isNumericKind(fv.Kind()) {
		fv.Set(sv.Convert(fv.Type()))
		return true
	}
	return false
}

// Each перечисляет поля в порядке дескриптора
func (r *structRecord) Each(fn func(name string, value any) bool) {
	for _, f := range r.desc.Fields {
		if !fn(f.Name, r.v.Field(f.Index).Interface()) {
			return
		}
	}
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// DynamicRecord - динамическая запись: упорядоченный контейнер
// имя -> значение с поиском без учета регистра. Представляет строку,
// форма которой неизвестна на этапе компиляции.
type DynamicRecord struct {
	names  []string
	index  map[string]int // lower(name) -> позиция
	values []any
}

var _ Record = (*DynamicRecord)(nil)

// NewDynamicRecord создает пустую динамическую запись
func NewDynamicRecord() *DynamicRecord {
	return &DynamicRecord{index: make(map[string]int)}
}

// Get возвращает значение поля по имени
func (r *DynamicRecord) Get(name string) (any, bool) {
	i, ok := r.index[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Set записывает поле, сохраняя порядок первого появления.
// Регистр имени запоминается по первому Set.
func (r *DynamicRecord) Set(name string, value any) bool {
	lc := strings.ToLower(name)
	if i, ok := r.index[lc]; ok {
		r.values[i] = value
		return true
	}
	r.index[lc] = len(r.names)
	r.names = append(r.names, name)
	r.values = append(r.values, value)
	return true
}

// Each перечисляет поля в порядке вставки
func (r *DynamicRecord) Each(fn func(name string, value any) bool) {
	for i, n := range r.names {
		if !fn(n, r.values[i]) {
			return
		}
	}
}

// Len возвращает количество полей
func (r *DynamicRecord) Len() int { return len(r.names) }

// Names возвращает имена полей в порядке вставки
func (r *DynamicRecord) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// FromRow заполняет запись значениями одной строки результата.
// Для типизированных записей действует узкое сопоставление: колонка
// присваивается, только когда runtime-тип значения точно совпадает с
// объявленным типом поля; иначе колонка молча пропускается. Это
// контрактное поведение (см. DESIGN.md), а не дефект: несовпавшие по
// типу колонки теряются без ошибки.
func FromRow(rec Record, cols []string, vals []any) {
	if sr, ok := rec.(*structRecord); ok {
		for i, c := range cols {
			f, ok := sr.desc.Field(c)
			if !ok {
				continue
			}
			v := vals[i]
			if v == nil || reflect.TypeOf(v) != f.Type {
				continue
			}
			sr.v.Field(f.Index).Set(reflect.ValueOf(v))
		}
		return
	}
	for i, c := range cols {
		rec.Set(c, vals[i])
	}
}
