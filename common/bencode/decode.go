package bencode

import (
	"fmt"
	"strconv"

	"github.com/elliotchance/orderedmap"
)

func BDecode(buf []byte) (interface{}, error) {
	ret, _, err := decodeAny(buf, 0)
	return ret, err
}

func BDecodeDict(buf []byte) (*orderedmap.OrderedMap, int, error) {
	if len(buf) == 0 || buf[0] != 'd' {
		return nil, 0, fmt.Errorf("not a dict")
	}
	return decodeDict(buf, 0)
}

func decodeAny(buf []byte, pos int) (interface{}, int, error) {
	if pos >= len(buf) {
		return nil, 0, fmt.Errorf("illegal payload")
	}
	switch buf[pos] {
	case 'i':
		return decodeInt(buf, pos)
	case '1', '2', '3', '4', '5', '6', '7', '8', '9', '0':
		return decodeBytes(buf, pos)
	case 'l':
		return decodeList(buf, pos)
	case 'd':
		return decodeDict(buf, pos)
	default:
		return nil, 0, fmt.Errorf("unsupported type: %c", buf[pos])
	}
}

func decodeList(buf []byte, pos int) ([]any, int, error) {
	ret := make([]any, 0)
	i := pos + 1
	for i < len(buf) && buf[i] != 'e' {
		item, offset, err := decodeAny(buf, i)
		if err != nil {
			return nil, 0, err
		}
		ret = append(ret, item)
		i = offset
	}
	if i >= len(buf) {
		return nil, 0, fmt.Errorf("unterminated list")
	}
	return ret, i + 1, nil
}

// decodeDict keeps key order from the wire so that re-encoding a decoded
// dict reproduces the original bytes. Content addressing relies on this.
func decodeDict(buf []byte, pos int) (*orderedmap.OrderedMap, int, error) {
	ret := orderedmap.NewOrderedMap()
	i := pos + 1
	for i < len(buf) && buf[i] != 'e' {
		key, offset, err := decodeBytes(buf, i)
		if err != nil {
			return nil, 0, err
		}
		i = offset
		if i >= len(buf) {
			return nil, 0, fmt.Errorf("dict key without value")
		}
		value, offset, err := decodeAny(buf, i)
		if err != nil {
			return nil, 0, err
		}
		ret.Set(string(key), value)
		i = offset
	}
	if i >= len(buf) {
		return nil, 0, fmt.Errorf("unterminated dict")
	}
	return ret, i + 1, nil
}

func decodeBytes(buf []byte, pos int) ([]byte, int, error) {
	i := pos
	for ; i < len(buf) && buf[i] != ':'; i++ {
	}
	if i >= len(buf) {
		return nil, 0, fmt.Errorf("illegal str")
	}
	l, err := strconv.Atoi((string)(buf[pos:i]))
	if err != nil {
		return nil, 0, err
	}
	// Bound l before any index arithmetic: a near-MaxInt length would
	// overflow i+l+1 and sneak past a naive end check.
	if l < 0 || l > len(buf)-i-1 {
		return nil, 0, fmt.Errorf("illegal str len")
	}
	return buf[i+1 : i+l+1], i + l + 1, nil
}

func decodeInt(buf []byte, pos int) (int, int, error) {
	begin := pos + 1
	i := begin
	for ; i < len(buf) && buf[i] != 'e'; i++ {
	}
	if i >= len(buf) {
		return 0, 0, fmt.Errorf("unterminated int")
	}
	ret, err := strconv.Atoi((string)(buf[begin:i]))
	return ret, i + 1, err
}
