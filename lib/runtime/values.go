// Package runtime provides the Maple dynamic object runtime core:
// a reference-counted object graph, a class registry with configurable
// method resolution order, a dispatcher with a fallback-method protocol,
// and a reflection surface over the loaded classes and modules.
package runtime

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// ValueType represents the type of a Maple value
type ValueType int

const (
	TypeNil ValueType = iota
	TypeInt
	TypeFloat
	TypeString
	TypeBool
	TypeArray
	TypeTable
	TypeCallable
	TypeRef
	TypeError
)

// Value is the Go representation of a Maple value. Cell payloads are
// Values: an ordered sequence, a keyed mapping, a single scalar, or a
// callable, dispatched uniformly regardless of kind.
type Value struct {
	Type        ValueType
	IntVal      int64
	FloatVal    float64
	StringVal   string
	ArrayVal    *Array
	TableVal    *Table
	CallableVal MethodFunc
	RefVal      *StrongHandle
	ErrorMsg    string
}

// NilValue returns a nil value
func NilValue() Value {
	return Value{Type: TypeNil}
}

// IntValue creates an integer value
func IntValue(n int64) Value {
	return Value{Type: TypeInt, IntVal: n}
}

// FloatValue creates a float value
func FloatValue(f float64) Value {
	return Value{Type: TypeFloat, FloatVal: f}
}

// StringValue creates a string value
func StringValue(s string) Value {
	return Value{Type: TypeString, StringVal: s}
}

// BoolValue creates a boolean value
func BoolValue(b bool) Value {
	if b {
		return Value{Type: TypeBool, IntVal: 1}
	}
	return Value{Type: TypeBool, IntVal: 0}
}

// ArrayValue creates a sequence value
func ArrayValue(arr *Array) Value {
	return Value{Type: TypeArray, ArrayVal: arr}
}

// TableValue creates a mapping value
func TableValue(t *Table) Value {
	return Value{Type: TypeTable, TableVal: t}
}

// CallableValue creates a callable value
func CallableValue(fn MethodFunc) Value {
	return Value{Type: TypeCallable, CallableVal: fn}
}

// RefValue creates a cell reference value. The handle is owned by the
// payload that holds it: when the enclosing cell dies, the handle is
// dropped.
func RefValue(h *StrongHandle) Value {
	return Value{Type: TypeRef, RefVal: h}
}

// ErrorValue creates an error value
func ErrorValue(msg string) Value {
	return Value{Type: TypeError, ErrorMsg: msg}
}

// IsNil returns true if the value is nil
func (v Value) IsNil() bool {
	return v.Type == TypeNil
}

// IsTruthy returns true for values that are considered "true" in conditionals
func (v Value) IsTruthy() bool {
	switch v.Type {
	case TypeNil:
		return false
	case TypeBool:
		return v.IntVal != 0
	case TypeInt:
		return v.IntVal != 0
	case TypeFloat:
		return v.FloatVal != 0
	case TypeString:
		return v.StringVal != ""
	case TypeError:
		return false
	default:
		return true
	}
}

// AsString converts the value to a string representation
func (v Value) AsString() string {
	switch v.Type {
	case TypeNil:
		return ""
	case TypeInt:
		return strconv.FormatInt(v.IntVal, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.FloatVal, 'f', -1, 64)
	case TypeString:
		return v.StringVal
	case TypeBool:
		if v.IntVal != 0 {
			return "true"
		}
		return "false"
	case TypeArray:
		if v.ArrayVal != nil {
			return v.ArrayVal.ToJSON()
		}
		return "[]"
	case TypeTable:
		if v.TableVal != nil {
			return v.TableVal.ToJSON()
		}
		return "{}"
	case TypeCallable:
		return "<callable>"
	case TypeRef:
		if v.RefVal != nil {
			return v.RefVal.ID()
		}
		return ""
	case TypeError:
		return "Error: " + v.ErrorMsg
	default:
		return ""
	}
}

// AsInt converts the value to an integer
func (v Value) AsInt() int64 {
	switch v.Type {
	case TypeInt:
		return v.IntVal
	case TypeFloat:
		return int64(v.FloatVal)
	case TypeBool:
		return v.IntVal
	case TypeString:
		n, _ := strconv.ParseInt(v.StringVal, 10, 64)
		return n
	default:
		return 0
	}
}

// AsFloat converts the value to a float
func (v Value) AsFloat() float64 {
	switch v.Type {
	case TypeFloat:
		return v.FloatVal
	case TypeInt:
		return float64(v.IntVal)
	case TypeBool:
		return float64(v.IntVal)
	case TypeString:
		f, _ := strconv.ParseFloat(v.StringVal, 64)
		return f
	default:
		return 0
	}
}

// ToJSON serializes the value to JSON. Callables have no serial form
// and render as a marker object; references render as their cell ID.
func (v Value) ToJSON() string {
	switch v.Type {
	case TypeNil:
		return "null"
	case TypeInt:
		return strconv.FormatInt(v.IntVal, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.FloatVal, 'f', -1, 64)
	case TypeString:
		data, _ := json.Marshal(v.StringVal)
		return string(data)
	case TypeBool:
		if v.IntVal != 0 {
			return "true"
		}
		return "false"
	case TypeArray:
		if v.ArrayVal != nil {
			return v.ArrayVal.ToJSON()
		}
		return "[]"
	case TypeTable:
		if v.TableVal != nil {
			return v.TableVal.ToJSON()
		}
		return "{}"
	case TypeCallable:
		return `{"_callable":true}`
	case TypeRef:
		if v.RefVal != nil {
			return fmt.Sprintf(`{"_ref":"%s"}`, v.RefVal.ID())
		}
		return "null"
	case TypeError:
		data, _ := json.Marshal(v.ErrorMsg)
		return fmt.Sprintf(`{"_error":%s}`, data)
	default:
		return "null"
	}
}

// Array represents a Maple ordered sequence
type Array struct {
	Elements []Value
}

// NewArray creates a new empty array
func NewArray() *Array {
	return &Array{Elements: make([]Value, 0)}
}

// Push adds an element to the array
func (a *Array) Push(v Value) {
	a.Elements = append(a.Elements, v)
}

// At returns the element at the given index
func (a *Array) At(idx int) Value {
	if idx < 0 || idx >= len(a.Elements) {
		return NilValue()
	}
	return a.Elements[idx]
}

// AtPut sets the element at the given index
func (a *Array) AtPut(idx int, v Value) {
	if idx >= 0 && idx < len(a.Elements) {
		a.Elements[idx] = v
	}
}

// Len returns the length of the array
func (a *Array) Len() int {
	return len(a.Elements)
}

// ToJSON serializes the array to JSON
func (a *Array) ToJSON() string {
	if a == nil || len(a.Elements) == 0 {
		return "[]"
	}
	result := "["
	for i, elem := range a.Elements {
		if i > 0 {
			result += ","
		}
		result += elem.ToJSON()
	}
	result += "]"
	return result
}

// Table represents a Maple keyed mapping
type Table struct {
	Entries map[string]Value
}

// NewTable creates a new empty table
func NewTable() *Table {
	return &Table{Entries: make(map[string]Value)}
}

// Get returns the value for a key, or nil if absent
func (t *Table) Get(key string) Value {
	if v, ok := t.Entries[key]; ok {
		return v
	}
	return NilValue()
}

// Put sets the value for a key
func (t *Table) Put(key string, v Value) {
	t.Entries[key] = v
}

// Has reports whether the key is present
func (t *Table) Has(key string) bool {
	_, ok := t.Entries[key]
	return ok
}

// Len returns the number of entries
func (t *Table) Len() int {
	return len(t.Entries)
}

// Keys returns the keys in sorted order
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.Entries))
	for k := range t.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToJSON serializes the table to JSON with keys in sorted order
func (t *Table) ToJSON() string {
	if t == nil || len(t.Entries) == 0 {
		return "{}"
	}
	result := "{"
	for i, k := range t.Keys() {
		if i > 0 {
			result += ","
		}
		key, _ := json.Marshal(k)
		result += string(key) + ":" + t.Entries[k].ToJSON()
	}
	result += "}"
	return result
}
