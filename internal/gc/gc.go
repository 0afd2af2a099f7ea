// Package gc is a stop-the-world mark-sweep collector over an intrusive
// allocation list. Every allocation runs a full cycle first.
package gc

import (
	"fmt"
	"os"
	"reflect"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("kestrel.gc")

// Fatal is called for unrecoverable heap conditions. It does not return.
// Tests replace it to observe the condition.
var Fatal = func(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Critical(msg)
	fmt.Fprintln(os.Stderr, "fatal: "+msg)
	os.Exit(70)
}

// Header is embedded in every collected entity.
type Header struct {
	next   Object
	marked bool
	owned  bool
	freed  bool
}

// GCHeader gives the collector access to the embedded header.
func (h *Header) GCHeader() *Header { return h }

// Owned reports whether the node is linked into an allocation list.
func (h *Header) Owned() bool { return h.owned }

// Freed reports whether a sweep has reclaimed the node.
func (h *Header) Freed() bool { return h.freed }

// Object is anything the collector can own and trace.
type Object interface {
	GCHeader() *Header
	// Trace marks every object directly reachable from the receiver.
	Trace(c *Collector)
}

// RootFunc reports the current roots by calling mark for each of them.
type RootFunc func(mark func(Object))

// Stats are cumulative allocation counters.
type Stats struct {
	Allocated int
	Freed     int
	Live      int
	Cycles    int
}

type Collector struct {
	head    Object
	roots   []RootFunc
	limit   int
	stats   Stats
	trace   bool
	unowned []*Header
}

type Option func(*Collector)

// WithLimit caps the number of live objects; exceeding it after a full
// cycle is fatal. Zero means unlimited.
func WithLimit(n int) Option {
	return func(c *Collector) { c.limit = n }
}

// WithTrace logs every cycle at debug level.
func WithTrace(on bool) Option {
	return func(c *Collector) { c.trace = on }
}

func NewCollector(opts ...Option) *Collector {
	c := &Collector{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddRoots registers a root provider. Providers are consulted in order at
// the start of every mark phase.
func (c *Collector) AddRoots(fn RootFunc) {
	c.roots = append(c.roots, fn)
}

// Allocate runs a full collection, then links obj at the head of the
// allocation list and returns it.
func Allocate[T Object](c *Collector, obj T) T {
	c.Collect()
	if c.limit > 0 && c.stats.Live >= c.limit {
		Fatal("heap exhausted: %d live objects (limit %d)", c.stats.Live, c.limit)
	}
	h := obj.GCHeader()
	if h.owned {
		return obj
	}
	h.owned = true
	h.freed = false
	h.next = c.head
	c.head = obj
	c.stats.Allocated++
	c.stats.Live++
	return obj
}

// Mark marks obj and everything reachable from it. Already marked objects
// stop the recursion, so cyclic graphs terminate.
func (c *Collector) Mark(obj Object) {
	if isNil(obj) {
		return
	}
	h := obj.GCHeader()
	if h.marked {
		return
	}
	h.marked = true
	if !h.owned {
		c.unowned = append(c.unowned, h)
	}
	obj.Trace(c)
}

// Collect runs one mark-sweep cycle.
func (c *Collector) Collect() {
	for _, fn := range c.roots {
		fn(c.Mark)
	}
	freed := c.sweep()
	for _, h := range c.unowned {
		h.marked = false
	}
	c.unowned = c.unowned[:0]
	c.stats.Cycles++
	if c.trace {
		log.Debugf("cycle %d: freed %d, live %d", c.stats.Cycles, freed, c.stats.Live)
	}
}

func (c *Collector) sweep() int {
	freed := 0
	var prev Object
	obj := c.head
	for obj != nil {
		h := obj.GCHeader()
		next := h.next
		if h.marked {
			h.marked = false
			prev = obj
		} else {
			if prev == nil {
				c.head = next
			} else {
				prev.GCHeader().next = next
			}
			h.next = nil
			h.owned = false
			h.freed = true
			freed++
		}
		obj = next
	}
	c.stats.Freed += freed
	c.stats.Live -= freed
	return freed
}

// Shutdown drops every root and collects twice: the first cycle frees what
// the roots kept alive, the second anything those frees left unreachable.
func (c *Collector) Shutdown() {
	c.roots = nil
	c.Collect()
	c.Collect()
}

// Stats returns the allocation counters.
func (c *Collector) Stats() Stats {
	return c.stats
}

// Contains reports whether obj is currently on the allocation list.
func (c *Collector) Contains(obj Object) bool {
	for o := c.head; o != nil; o = o.GCHeader().next {
		if o == obj {
			return true
		}
	}
	return false
}

// isNil catches typed nil pointers stored in the interface.
func isNil(obj Object) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
