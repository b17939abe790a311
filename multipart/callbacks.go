package multipart

import (
	"sync"
)

// CompletionFunc runs after a successful upload, or after any upload as an always callback.
type CompletionFunc func()

// FailFunc runs after a failed upload with the error that stopped it.
type FailFunc func(err error)

type callback[F any] struct {
	id int
	fn F
}

// chain is an ordered callback list. Insertion order is execution order and the same
// function may be added more than once; each addition is removed on its own.
type chain[F any] struct {
	entries []callback[F]
}

func (c *chain[F]) add(id int, fn F) {
	c.entries = append(c.entries, callback[F]{id: id, fn: fn})
}

func (c *chain[F]) remove(id int) {
	for i, e := range c.entries {
		if e.id == id {
			c.entries = append(c.entries[:i:i], c.entries[i+1:]...)
			return
		}
	}
}

func (c *chain[F]) funcs() []F {
	fns := make([]F, 0, len(c.entries))
	for _, e := range c.entries {
		fns = append(fns, e.fn)
	}
	return fns
}

// callbacks holds the done, fail and always chains.
type callbacks struct {
	mu     sync.Mutex
	nextID int
	done   chain[CompletionFunc]
	fail   chain[FailFunc]
	always chain[CompletionFunc]
}

func (c *callbacks) addDone(fn CompletionFunc) func() {
	return c.add(func(id int) { c.done.add(id, fn) }, func(id int) { c.done.remove(id) })
}

func (c *callbacks) addFail(fn FailFunc) func() {
	return c.add(func(id int) { c.fail.add(id, fn) }, func(id int) { c.fail.remove(id) })
}

func (c *callbacks) addAlways(fn CompletionFunc) func() {
	return c.add(func(id int) { c.always.add(id, fn) }, func(id int) { c.always.remove(id) })
}

func (c *callbacks) add(add, remove func(id int)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	add(id)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		remove(id)
	}
}

// snapshot copies the chains; callbacks added or removed during delivery don't affect it.
func (c *callbacks) snapshot() ([]CompletionFunc, []FailFunc, []CompletionFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done.funcs(), c.fail.funcs(), c.always.funcs()
}

func (c *callbacks) counts() (int, int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.done.entries), len(c.fail.entries), len(c.always.entries)
}
