package router

import (
	"sync"
	"testing"
	"time"
)

func TestGrowableBuffer_SendReceive(t *testing.T) {
	b := NewGrowableBuffer[int](10)

	if !b.Send(42) {
		t.Fatal("Send() = false, want true")
	}
	if got := b.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}

	item, ok := b.Receive()
	if !ok {
		t.Fatal("Receive() ok = false")
	}
	if item != 42 {
		t.Errorf("Receive() = %d, want 42", item)
	}
	if got := b.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}

func TestGrowableBuffer_FIFOOrder(t *testing.T) {
	b := NewGrowableBuffer[int](100)

	for i := 0; i < 50; i++ {
		b.Send(i)
	}
	for i := 0; i < 50; i++ {
		item, ok := b.Receive()
		if !ok {
			t.Fatalf("Receive() %d ok = false", i)
		}
		if item != i {
			t.Fatalf("Receive() = %d, want %d", item, i)
		}
	}
}

func TestGrowableBuffer_GrowsAt70Percent(t *testing.T) {
	b := NewGrowableBuffer[int](10)

	// Threshold of a capacity-10 buffer is 7 items.
	for i := 0; i < 6; i++ {
		b.Send(i)
	}
	if got := b.Cap(); got != 10 {
		t.Fatalf("Cap() = %d before threshold, want 10", got)
	}

	b.Send(6)
	if got := b.Cap(); got != 20 {
		t.Errorf("Cap() = %d after threshold, want 20", got)
	}

	stats := b.Stats()
	if stats.ResizeCount != 1 {
		t.Errorf("ResizeCount = %d, want 1", stats.ResizeCount)
	}

	// Contents survive the grow in order.
	for i := 0; i < 7; i++ {
		item, _ := b.Receive()
		if item != i {
			t.Fatalf("Receive() = %d, want %d", item, i)
		}
	}
}

func TestGrowableBuffer_GrowPreservesWrappedItems(t *testing.T) {
	b := NewGrowableBuffer[int](10)

	// Wrap the ring: advance head past zero before filling.
	for i := 0; i < 5; i++ {
		b.Send(i)
	}
	for i := 0; i < 5; i++ {
		b.Receive()
	}
	for i := 10; i < 17; i++ {
		b.Send(i)
	}

	for i := 10; i < 17; i++ {
		item, ok := b.Receive()
		if !ok {
			t.Fatal("Receive() ok = false")
		}
		if item != i {
			t.Fatalf("Receive() = %d, want %d", item, i)
		}
	}
}

func TestGrowableBuffer_TryReceive(t *testing.T) {
	b := NewGrowableBuffer[string](10)

	if _, ok := b.TryReceive(); ok {
		t.Error("TryReceive() on empty buffer ok = true")
	}

	b.Send("hello")
	item, ok := b.TryReceive()
	if !ok || item != "hello" {
		t.Errorf("TryReceive() = (%q, %v), want (hello, true)", item, ok)
	}
}

func TestGrowableBuffer_Close(t *testing.T) {
	b := NewGrowableBuffer[int](10)

	b.Send(1)
	b.Send(2)
	b.Close()

	if b.Send(3) {
		t.Error("Send() after Close() = true, want false")
	}

	// Remaining items are drained before the closed signal.
	if item, ok := b.Receive(); !ok || item != 1 {
		t.Errorf("Receive() = (%d, %v), want (1, true)", item, ok)
	}
	if item, ok := b.Receive(); !ok || item != 2 {
		t.Errorf("Receive() = (%d, %v), want (2, true)", item, ok)
	}
	if _, ok := b.Receive(); ok {
		t.Error("Receive() on drained closed buffer ok = true")
	}
}

func TestGrowableBuffer_CloseUnblocksReceiver(t *testing.T) {
	b := NewGrowableBuffer[int](10)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, ok := b.Receive(); ok {
			t.Error("Receive() on closed empty buffer ok = true")
		}
	}()

	time.Sleep(10 * time.Millisecond)
	b.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Receive() did not unblock after Close()")
	}
}

func TestGrowableBuffer_ConcurrentSendReceive(t *testing.T) {
	b := NewGrowableBuffer[int](16)
	const n = 1000

	var wg sync.WaitGroup
	received := make(map[int]bool, n)
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			item, ok := b.Receive()
			if !ok {
				return
			}
			mu.Lock()
			received[item] = true
			mu.Unlock()
		}
	}()

	for i := 0; i < n; i++ {
		if !b.Send(i) {
			t.Fatalf("Send(%d) = false", i)
		}
	}

	// Let the receiver drain before closing.
	deadline := time.Now().Add(2 * time.Second)
	for b.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	b.Close()
	wg.Wait()

	if len(received) != n {
		t.Errorf("received %d distinct items, want %d", len(received), n)
	}
}
