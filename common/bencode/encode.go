package bencode

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/elliotchance/orderedmap"
)

func BEncode(obj interface{}) (string, error) {
	builder := strings.Builder{}
	err := encodeAny(&builder, obj)
	if err != nil {
		return "", err
	}
	return builder.String(), nil
}

func encodeInt(builder *strings.Builder, val int64) {
	builder.WriteByte('i')
	builder.WriteString(strconv.FormatInt(val, 10))
	builder.WriteByte('e')
}

func encodeString(builder *strings.Builder, val string) {
	builder.WriteString(strconv.Itoa(len(val)))
	builder.WriteByte(':')
	builder.WriteString(val)
}

func encodeBytes(builder *strings.Builder, data []byte) {
	builder.WriteString(strconv.Itoa(len(data)))
	builder.WriteByte(':')
	builder.Write(data)
}

// Plain maps carry no order, so keys are sorted to keep output
// deterministic. Decoded dicts come back as ordered maps and are
// written in their original order instead.
func encodeMap(builder *strings.Builder, m map[string]interface{}) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	builder.WriteByte('d')
	for _, k := range keys {
		encodeString(builder, k)
		err := encodeAny(builder, m[k])
		if err != nil {
			return err
		}
	}
	builder.WriteByte('e')
	return nil
}

func encodeOrderedMap(builder *strings.Builder, m *orderedmap.OrderedMap) error {
	builder.WriteByte('d')
	for el := m.Front(); el != nil; el = el.Next() {
		key, ok := el.Key.(string)
		if !ok {
			return errors.New("dict key must be string")
		}
		encodeString(builder, key)
		err := encodeAny(builder, el.Value)
		if err != nil {
			return err
		}
	}
	builder.WriteByte('e')
	return nil
}

func encodeAny(builder *strings.Builder, item interface{}) error {
	switch v := item.(type) {
	case int:
		encodeInt(builder, int64(v))
	case int64:
		encodeInt(builder, v)
	case string:
		encodeString(builder, v)
	case []byte:
		encodeBytes(builder, v)
	case *orderedmap.OrderedMap:
		err := encodeOrderedMap(builder, v)
		if err != nil {
			return err
		}
	case map[string]interface{}:
		err := encodeMap(builder, v)
		if err != nil {
			return err
		}
	case []any:
		err := encodeList(builder, v)
		if err != nil {
			return err
		}
	default:
		return errors.New("unsupported type")
	}
	return nil
}

func encodeList(builder *strings.Builder, list []any) error {
	builder.WriteByte('l')
	for _, item := range list {
		err := encodeAny(builder, item)
		if err != nil {
			return err
		}
	}
	builder.WriteByte('e')
	return nil
}
