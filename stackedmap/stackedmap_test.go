// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stackedmap_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vechain/feepool/stackedmap"
)

func M(a ...any) []any {
	return a
}

func TestStackedMap(t *testing.T) {
	assert := assert.New(t)
	src := map[string]string{"foo": "bar"}

	sm := stackedmap.New[string, string](func(key string) (string, bool, error) {
		v, r := src[key]
		return v, r, nil
	})

	tests := []struct {
		f         func()
		depth     int
		putKey    string
		putValue  string
		getKey    string
		getReturn []any
	}{
		{func() {}, 1, "", "", "foo", []any{"bar", true, nil}},
		{func() { sm.Push() }, 2, "foo", "baz", "foo", []any{"baz", true, nil}},
		{func() {}, 2, "foo", "baz1", "foo", []any{"baz1", true, nil}},
		{func() { sm.Push() }, 3, "foo", "qux", "foo", []any{"qux", true, nil}},
		{func() { sm.Pop() }, 2, "", "", "foo", []any{"baz1", true, nil}},
		{func() { sm.Pop() }, 1, "", "", "foo", []any{"bar", true, nil}},

		{func() { sm.Push(); sm.Push() }, 3, "", "", "", nil},
		{func() { sm.PopTo(0) }, 0, "", "", "", nil},
	}

	for _, test := range tests {
		test.f()
		assert.Equal(test.depth, sm.Depth())
		if test.putKey != "" {
			sm.Put(test.putKey, test.putValue)
		}
		if test.getKey != "" {
			assert.Equal(test.getReturn, M(sm.Get(test.getKey)))
		}
	}
}

func TestStackedMapJournal(t *testing.T) {
	sm := stackedmap.New[string, int](func(string) (int, bool, error) {
		return 0, false, nil
	})

	kvs := []struct {
		k string
		v int
	}{
		{"a", 1},
		{"a", 2},
		{"b", 3},
		{"c", 4},
	}
	for _, kv := range kvs {
		sm.Push()
		sm.Put(kv.k, kv.v)
	}

	var got []int
	sm.Journal(func(_ string, v int) bool {
		got = append(got, v)
		return true
	})
	assert.Equal(t, []int{1, 2, 3, 4}, got)

	got = nil
	sm.Journal(func(_ string, v int) bool {
		got = append(got, v)
		return len(got) < 2
	})
	assert.Equal(t, []int{1, 2}, got)

	sm.PopTo(2)
	v, ok, err := sm.Get("a")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok, _ = sm.Get("b")
	assert.False(t, ok)
}

func TestStackedMapRepeatedPut(t *testing.T) {
	sm := stackedmap.New[string, int](func(string) (int, bool, error) {
		return 0, false, nil
	})
	sm.Push()
	sm.Put("a", 1)
	sm.Put("a", 2)
	sm.Pop()

	_, ok, _ := sm.Get("a")
	assert.False(t, ok)
}

func TestStackedMapSourceError(t *testing.T) {
	errSrc := errors.New("source failure")
	sm := stackedmap.New[string, int](func(string) (int, bool, error) {
		return 0, false, errSrc
	})

	_, _, err := sm.Get("x")
	assert.ErrorIs(t, err, errSrc)
	assert.Equal(t, 1, sm.SourceReads())

	sm.Put("x", 1)
	v, _, err := sm.Get("x")
	assert.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, sm.SourceReads())
}
