package rail

import "testing"

func TestNextSignalTypeCycles(t *testing.T) {
	// Classic group wraps from one-way PBS back to block.
	if got := NextSignalType(SignalPBSOneWay, CycleClassic); got != SignalBlock {
		t.Fatalf("classic wrap: got %d", got)
	}
	if got := NextSignalType(SignalBlock, CycleClassic); got != SignalEntry {
		t.Fatalf("classic step: got %d", got)
	}
	// The full group continues into no-entry and programmable.
	if got := NextSignalType(SignalPBSOneWay, CycleAll); got != SignalNoEntry {
		t.Fatalf("all step: got %d", got)
	}
	if got := NextSignalType(SignalProg, CycleAll); got != SignalBlock {
		t.Fatalf("all wrap: got %d", got)
	}
	// A type outside the group restarts at the beginning.
	if got := NextSignalType(SignalProg, CycleClassic); got != SignalBlock {
		t.Fatalf("out-of-group restart: got %d", got)
	}
}

func TestSignalTypeIsPBS(t *testing.T) {
	if !SignalPBS.IsPBS() || !SignalPBSOneWay.IsPBS() {
		t.Fatalf("path signal types misclassified")
	}
	if SignalBlock.IsPBS() || SignalProg.IsPBS() {
		t.Fatalf("non-path signal types misclassified")
	}
}

func TestSignalStyleFilters(t *testing.T) {
	open := SignalStyle{Name: "default"}
	if !open.AllowsType(SignalProg) || !open.AllowsVariant(SignalSemaphore) {
		t.Fatalf("zero-mask style should allow everything")
	}

	gate := SignalStyle{Name: "gate", Types: 1<<SignalPBS | 1<<SignalPBSOneWay}
	if !gate.AllowsType(SignalPBS) || gate.AllowsType(SignalBlock) {
		t.Fatalf("type mask not applied")
	}

	banner := SignalStyle{Name: "banner", SemaphoreOnly: true}
	if banner.AllowsVariant(SignalElectric) || !banner.AllowsVariant(SignalSemaphore) {
		t.Fatalf("semaphore-only filter wrong")
	}
	led := SignalStyle{Name: "led", ElectricOnly: true}
	if led.AllowsVariant(SignalSemaphore) || !led.AllowsVariant(SignalElectric) {
		t.Fatalf("electric-only filter wrong")
	}
}
