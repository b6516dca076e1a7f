package cache

import (
	"sync"
	"testing"
)

func TestLRU_Evicts(t *testing.T) {
	c := New[string, int](2)
	c.Add("a", 1)
	c.Add("b", 2)
	c.Get("a") // a is now MRU
	c.Add("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %d, %v", v, ok)
	}
	if c.Len() != 2 {
		t.Fatalf("len = %d", c.Len())
	}
}

func TestLRU_GetOrAddAndRemove(t *testing.T) {
	c := New[string, int](4)
	calls := 0
	mk := func() int { calls++; return 7 }

	if c.GetOrAdd("k", mk) != 7 || c.GetOrAdd("k", mk) != 7 || calls != 1 {
		t.Fatalf("mk called %d times", calls)
	}
	c.Remove("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("k still present")
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := New[int, int](16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Add(i*100+j, j)
				c.Get(j)
			}
		}(i)
	}
	wg.Wait()
	if c.Len() != 16 {
		t.Fatalf("len = %d", c.Len())
	}
}

func TestNew_PanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	New[string, int](0)
}
