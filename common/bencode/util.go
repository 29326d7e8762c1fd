package bencode

import (
	"strings"

	"github.com/elliotchance/orderedmap"
)

func GetString(dict *orderedmap.OrderedMap, path string) (string, bool) {
	r := GetByPath(dict, path)
	switch v := r.(type) {
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}

func GetInt(dict *orderedmap.OrderedMap, path string) (int, bool) {
	r := GetByPath(dict, path)
	switch v := r.(type) {
	case int:
		return v, true
	default:
		return 0, false
	}
}

func GetBytes(dict *orderedmap.OrderedMap, path string) []byte {
	r := GetByPath(dict, path)
	switch v := r.(type) {
	case []byte:
		return v
	}
	return nil
}

func GetList(dict *orderedmap.OrderedMap, path string) ([]any, bool) {
	r := GetByPath(dict, path)
	switch v := r.(type) {
	case []any:
		return v, true
	}
	return nil, false
}

func GetDict(dict *orderedmap.OrderedMap, path string) (*orderedmap.OrderedMap, bool) {
	r := GetByPath(dict, path)
	switch v := r.(type) {
	case *orderedmap.OrderedMap:
		return v, true
	}
	return nil, false
}

func GetByPath(dict *orderedmap.OrderedMap, path string) any {
	parts := strings.Split(path, ".")
	var m any = dict
	for i := 0; i < len(parts); i++ {
		d, ok := m.(*orderedmap.OrderedMap)
		if !ok {
			return nil
		}
		m, ok = d.Get(parts[i])
		if !ok {
			return nil
		}
	}
	return m
}

func CheckPath(dict *orderedmap.OrderedMap, path string) bool {
	return GetByPath(dict, path) != nil
}

// ToMap converts a decoded dict into plain nested maps for callers that
// do not care about key order, e.g. mapstructure decoding.
func ToMap(dict *orderedmap.OrderedMap) map[string]any {
	ret := make(map[string]any, dict.Len())
	for el := dict.Front(); el != nil; el = el.Next() {
		ret[el.Key.(string)] = toPlain(el.Value)
	}
	return ret
}

func toPlain(item any) any {
	switch v := item.(type) {
	case *orderedmap.OrderedMap:
		return ToMap(v)
	case []any:
		r := make([]any, 0, len(v))
		for _, e := range v {
			r = append(r, toPlain(e))
		}
		return r
	default:
		return item
	}
}
