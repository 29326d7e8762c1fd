package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRWCache_expiry(t *testing.T) {
	c := NewLRWCache[string, struct{}](context.Background(), 100*time.Millisecond, 100)
	defer c.Close()
	c.Set("foo", struct{}{})
	assert.True(t, c.Exists("foo"))
	time.Sleep(150 * time.Millisecond)
	assert.False(t, c.Exists("foo"))
	c.Set("foo", struct{}{})
	assert.True(t, c.Exists("foo"))
}

func TestLRWCache_maxSize(t *testing.T) {
	c := NewLRWCache[string, int](context.Background(), time.Minute, 2)
	defer c.Close()
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	assert.False(t, c.Exists("a"))
	assert.True(t, c.Exists("b"))
	assert.True(t, c.Exists("c"))
}

func TestLRWCache_getAndRemove(t *testing.T) {
	c := NewLRWCache[uint32, string](context.Background(), time.Minute, 10)
	defer c.Close()
	c.Set(7, "once")
	v, ok := c.GetAndRemove(7)
	assert.True(t, ok)
	assert.Equal(t, "once", v)
	_, ok = c.GetAndRemove(7)
	assert.False(t, ok)
}

func TestLRWCache_delete(t *testing.T) {
	c := NewLRWCache[string, int](context.Background(), time.Minute, 10)
	defer c.Close()
	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	c.Delete("a")
	assert.False(t, c.Exists("a"))
	c.Delete("a")
}
