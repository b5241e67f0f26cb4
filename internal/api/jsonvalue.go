package api

import (
	"bytes"
	"encoding/json"
)

// JSONValue — значение произвольного JSON-документа.
// Отсутствующий или неожиданный ключ — это не ошибка, а пустое значение.
type JSONValue struct {
	Kind    JSONKind
	Str     string
	Num     float64
	Bool    bool
	Object  map[string]JSONValue
	Array   []JSONValue
}

type JSONKind int

const (
	JSONNull JSONKind = iota
	JSONString
	JSONNumber
	JSONBool
	JSONObject
	JSONArray
)

func (v *JSONValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*v = JSONValue{Kind: JSONNull}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = JSONValue{Kind: JSONString, Str: s}
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return err
		}
		*v = JSONValue{Kind: JSONBool, Bool: b}
	case '{':
		obj := make(map[string]JSONValue)
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return err
		}
		*v = JSONValue{Kind: JSONObject, Object: obj}
	case '[':
		var arr []JSONValue
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return err
		}
		*v = JSONValue{Kind: JSONArray, Array: arr}
	default:
		var n float64
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return err
		}
		*v = JSONValue{Kind: JSONNumber, Num: n}
	}
	return nil
}

func (v JSONValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case JSONString:
		return json.Marshal(v.Str)
	case JSONNumber:
		return json.Marshal(v.Num)
	case JSONBool:
		return json.Marshal(v.Bool)
	case JSONObject:
		return json.Marshal(v.Object)
	case JSONArray:
		return json.Marshal(v.Array)
	default:
		return []byte("null"), nil
	}
}

func String(s string) JSONValue  { return JSONValue{Kind: JSONString, Str: s} }
func Number(n float64) JSONValue { return JSONValue{Kind: JSONNumber, Num: n} }
func Bool(b bool) JSONValue      { return JSONValue{Kind: JSONBool, Bool: b} }

// GetString возвращает строку по ключу или пустую строку, если ключа нет
func GetString(m map[string]JSONValue, key string) string {
	if v, ok := m[key]; ok && v.Kind == JSONString {
		return v.Str
	}
	return ""
}

// GetInt возвращает целое по ключу или 0, если ключа нет
func GetInt(m map[string]JSONValue, key string) int {
	if v, ok := m[key]; ok && v.Kind == JSONNumber {
		return int(v.Num)
	}
	return 0
}

// GetBool возвращает флаг по ключу или false, если ключа нет
func GetBool(m map[string]JSONValue, key string) bool {
	if v, ok := m[key]; ok && v.Kind == JSONBool {
		return v.Bool
	}
	return false
}
