package c64

import "testing"

func TestIECBusWiredAND(t *testing.T) {
	bus := NewIECBus()
	a := bus.NewDriver()
	b := bus.NewDriver()

	if bus.CLK() {
		t.Fatalf("CLK should start deasserted")
	}
	a.SetCLK(true)
	if !bus.CLK() {
		t.Fatalf("CLK should read asserted once any driver asserts it")
	}
	a.SetCLK(false)
	if bus.CLK() {
		t.Fatalf("CLK should read deasserted once its asserter releases it")
	}
	b.SetCLK(true)
	if !bus.CLK() {
		t.Fatalf("CLK should read asserted via the second driver")
	}
}

func TestIECBusATNEdgeCallback(t *testing.T) {
	bus := NewIECBus()
	var edges []bool
	bus.OnATNEdge(func(asserted bool) { edges = append(edges, asserted) })

	d := bus.NewDriver()
	d.SetATN(true)
	d.SetATN(false)

	if len(edges) != 2 || !edges[0] || edges[1] {
		t.Fatalf("edges=%v, want [true false]", edges)
	}
}
