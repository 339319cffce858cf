package buffer

import "testing"

func TestPoolGetReturnsZeroed(t *testing.T) {
	p := NewPool()

	f := p.Get(8)
	if f.Len() != 8 {
		t.Fatalf("Len() = %d, want 8", f.Len())
	}

	for i, v := range f.Samples() {
		if v != 0 {
			t.Fatalf("Samples()[%d] = %v, want 0", i, v)
		}
	}

	p.Put(f)
}

func TestPoolReuseIsZeroed(t *testing.T) {
	p := NewPool()

	f := p.Get(4)
	f.Samples()[0] = 42
	f.Samples()[1] = 43
	p.Put(f)

	f2 := p.Get(4)
	for i, v := range f2.Samples() {
		if v != 0 {
			t.Fatalf("reused Samples()[%d] = %v, want 0", i, v)
		}
	}

	p.Put(f2)
}

func TestPoolPutNilSafe(_ *testing.T) {
	p := NewPool()
	p.Put(nil)
}

func TestFrameLoadPadsPastEnd(t *testing.T) {
	var f Frame
	f.Resize(4)
	f.Load([]float64{1, 2, 3, 4, 5}, 3)
	want := []float64{4, 5, 0, 0}
	for i, v := range f.Samples() {
		if v != want[i] {
			t.Fatalf("Samples() = %v, want %v", f.Samples(), want)
		}
	}
	f.Load([]float64{1, 2, 3}, -2)
	want = []float64{0, 0, 1, 2}
	for i, v := range f.Samples() {
		if v != want[i] {
			t.Fatalf("Samples() = %v, want %v", f.Samples(), want)
		}
	}
	f.Load([]float64{1}, 10)
	for _, v := range f.Samples() {
		if v != 0 {
			t.Fatalf("out-of-range Load should zero the frame: %v", f.Samples())
		}
	}
}
