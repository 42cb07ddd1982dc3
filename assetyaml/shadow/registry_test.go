package shadow

import (
	"runtime"
	"sync"
	"testing"
	"time"
	"unsafe"
)

type owner struct {
	Slot
	name string
}

type counter struct{ n int }

func (c *counter) CloneShadow() any { return &counter{n: c.n} }

func TestRegistryIdentity(t *testing.T) {
	r := NewRegistry()
	a := &owner{name: "same"}
	b := &owner{name: "same"}

	r.Store(a, "k", 1)
	if _, ok := r.Lookup(b, "k"); ok {
		t.Error("equal owner shares the entry")
	}
	if v, ok := r.Lookup(a, "k"); !ok || v != 1 {
		t.Errorf("Lookup = %v, %t", v, ok)
	}
	if _, ok := r.Lookup(b, "missing"); ok || b.tok != nil {
		t.Error("Lookup allocated an entry")
	}

	r.Delete(a, "k")
	if r.Len() != 0 {
		t.Errorf("Len = %d after deleting the last key", r.Len())
	}
}

func TestRegistryDisabled(t *testing.T) {
	r := NewRegistry()
	r.SetEnabled(false)
	o := &owner{}

	created := r.LoadOrStore(o, "k", func() any { return 5 })
	if created != 5 {
		t.Errorf("LoadOrStore = %v", created)
	}
	if _, ok := r.Lookup(o, "k"); ok {
		t.Error("disabled registry stored a value")
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d", r.Len())
	}
}

func TestRegistryCopyTo(t *testing.T) {
	r := NewRegistry()
	src := &owner{}
	dst := &owner{}
	shared := []int{1}
	r.Store(src, "counter", &counter{n: 1})
	r.Store(src, "shared", shared)

	r.CopyTo(dst, src)

	v, _ := r.Lookup(dst, "counter")
	v.(*counter).n = 2
	orig, _ := r.Lookup(src, "counter")
	if orig.(*counter).n != 1 {
		t.Error("Cloner value shared between owners")
	}
	if len(r.Keys(dst)) != 2 {
		t.Errorf("Keys = %v", r.Keys(dst))
	}
}

func TestRegistryReleasesCollectedOwners(t *testing.T) {
	if size := unsafe.Sizeof(token{}); size < 16 {
		t.Fatalf("token is %d bytes, tiny allocations are never cleaned up", size)
	}
	r := NewRegistry()
	func() {
		o := &owner{name: "short lived"}
		r.Store(o, "k", "v")
	}()
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}

	deadline := time.Now().Add(5 * time.Second)
	for r.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("entry of collected owner was not released")
		}
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRegistryConcurrentOwners(t *testing.T) {
	r := NewRegistry()
	owners := make([]*owner, 64)
	for i := range owners {
		owners[i] = &owner{}
	}

	var wg sync.WaitGroup
	for i, o := range owners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Store(o, "i", i)
			r.LoadOrStore(o, "j", func() any { return i * 2 })
		}()
	}
	wg.Wait()

	for i, o := range owners {
		if v, _ := r.Lookup(o, "j"); v != i*2 {
			t.Errorf("owner %d: j = %v", i, v)
		}
	}
	runtime.KeepAlive(owners)
}
