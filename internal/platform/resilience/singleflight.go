package resilience

import (
	"fmt"
	"sync"
)

// SingleFlight coalesces concurrent calls for the same key onto one
// execution. Callers that joined an in-flight call get shared=true.
type SingleFlight[T any] struct {
	mu    sync.Mutex
	calls map[string]*flightCall[T]
}

type flightCall[T any] struct {
	wg  sync.WaitGroup
	val T
	err error
}

func (g *SingleFlight[T]) Do(key string, fn func() (T, error)) (val T, err error, shared bool) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*flightCall[T])
	}

	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, c.err, true
	}

	c := &flightCall[T]{}
	c.wg.Add(1)
	g.calls[key] = c
	g.mu.Unlock()

	g.run(key, c, fn)

	return c.val, c.err, false
}

func (g *SingleFlight[T]) run(key string, c *flightCall[T], fn func() (T, error)) {
	defer func() {
		if rec := recover(); rec != nil {
			c.err = fmt.Errorf("singleflight %s panicked: %v", key, rec)
		}
		g.mu.Lock()
		delete(g.calls, key)
		g.mu.Unlock()
		c.wg.Done()
	}()

	c.val, c.err = fn()
}
