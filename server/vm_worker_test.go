package server

import (
	"errors"
	"sync"
	"testing"

	"github.com/chazu/kavya/compiler"
	"github.com/chazu/kavya/vm"
)

func newWorker(t *testing.T) *VMWorker {
	t.Helper()
	v := vm.New()
	v.UseCompiler(compiler.Compile)
	w := NewVMWorker(v)
	t.Cleanup(w.Stop)
	return w
}

func TestWorkerDo(t *testing.T) {
	w := newWorker(t)
	result, err := w.Do(func(v *vm.VM) any {
		v.DefineGlobal("answer", vm.FromNumber(42))
		val, _ := v.Global("answer")
		return val.Number()
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if result.(float64) != 42 {
		t.Errorf("result = %v, want 42", result)
	}
}

func TestWorkerRecoversPanics(t *testing.T) {
	w := newWorker(t)
	_, err := w.Do(func(v *vm.VM) any {
		panic("boom")
	})
	if err == nil {
		t.Fatal("Do should report a panic as an error")
	}

	// The worker keeps serving requests afterwards.
	result, err := w.Do(func(v *vm.VM) any { return "alive" })
	if err != nil || result != "alive" {
		t.Errorf("after panic: %v, %v", result, err)
	}
}

func TestWorkerSerializesAccess(t *testing.T) {
	w := newWorker(t)
	w.Do(func(v *vm.VM) any {
		v.DefineGlobal("n", vm.FromNumber(0))
		return nil
	})

	const goroutines = 16
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Do(func(v *vm.VM) any {
				n, _ := v.Global("n")
				v.DefineGlobal("n", vm.FromNumber(n.Number()+1))
				return nil
			})
		}()
	}
	wg.Wait()

	result, _ := w.Do(func(v *vm.VM) any {
		n, _ := v.Global("n")
		return n.Number()
	})
	if result.(float64) != goroutines {
		t.Errorf("n = %v, want %d", result, goroutines)
	}
}

func TestWorkerCompile(t *testing.T) {
	w := newWorker(t)
	if err := w.Compile("write 1"); err != nil {
		t.Errorf("Compile of valid source: %v", err)
	}

	err := w.Compile("write )")
	var list compiler.ErrorList
	if !errors.As(err, &list) || len(list) != 1 {
		t.Errorf("Compile of invalid source: err = %v, want one compile error", err)
	}
}

func TestWorkerStop(t *testing.T) {
	w := newWorker(t)
	w.Stop()
	w.Stop()

	if _, err := w.Do(func(v *vm.VM) any { return nil }); !errors.Is(err, ErrWorkerStopped) {
		t.Errorf("Do after Stop: err = %v, want ErrWorkerStopped", err)
	}
}
