package bencode

import (
	"testing"

	"github.com/elliotchance/orderedmap"
	"github.com/stretchr/testify/assert"
)

func testDict() *orderedmap.OrderedMap {
	m := orderedmap.NewOrderedMap()
	m.Set("foo", []byte("bar"))
	inner := orderedmap.NewOrderedMap()
	inner.Set("baz", []byte("foobar"))
	inner.Set("count", 3)
	m.Set("bar", inner)
	m.Set("items", []any{1, []byte("two")})
	return m
}

func TestCheckPath(t *testing.T) {
	m := testDict()
	assert.True(t, CheckPath(m, "foo"))
	assert.False(t, CheckPath(m, "baz"))
	assert.True(t, CheckPath(m, "bar"))
	assert.True(t, CheckPath(m, "bar.baz"))
	assert.False(t, CheckPath(m, "bar.foo"))
	assert.False(t, CheckPath(m, "foo.bar"))
}

func TestGetters(t *testing.T) {
	m := testDict()

	s, ok := GetString(m, "bar.baz")
	assert.True(t, ok)
	assert.Equal(t, "foobar", s)

	_, ok = GetString(m, "bar.count")
	assert.False(t, ok)

	i, ok := GetInt(m, "bar.count")
	assert.True(t, ok)
	assert.Equal(t, 3, i)

	assert.Equal(t, []byte("bar"), GetBytes(m, "foo"))
	assert.Nil(t, GetBytes(m, "missing"))

	l, ok := GetList(m, "items")
	assert.True(t, ok)
	assert.Len(t, l, 2)

	d, ok := GetDict(m, "bar")
	assert.True(t, ok)
	assert.Equal(t, 2, d.Len())
}

func TestToMap(t *testing.T) {
	m := ToMap(testDict())
	assert.Equal(t, []byte("bar"), m["foo"])
	inner, ok := m["bar"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, 3, inner["count"])
	items, ok := m["items"].([]any)
	assert.True(t, ok)
	assert.Equal(t, []byte("two"), items[1])
}
