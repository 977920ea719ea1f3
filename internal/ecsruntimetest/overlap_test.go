package ecsruntimetest_test

import (
	"sync"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/nimblegames/ecsruntime/internal/ecsruntimetest"
)

func TestOverlapBarrierReleasesOnceSaturated(t *testing.T) {
	b := ecsruntimetest.NewOverlapBarrier(2)
	var wg sync.WaitGroup
	wg.Add(2)

	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			b.Wait(time.Second)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("barrier never released both waiters")
	}
}

func TestOverlapBarrierPanicsWhenNeverSaturated(t *testing.T) {
	b := ecsruntimetest.NewOverlapBarrier(2)
	defer func() {
		r := recover()
		assert.Assert(t, r != nil)
	}()
	b.Wait(50 * time.Millisecond)
}
