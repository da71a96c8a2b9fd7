package rail

import "math/bits"

// RailType identifies one allocated rail type in the registry.
type RailType uint8

const InvalidRailType RailType = 0xFF

// RailTypeMask is a bitset of rail types.
type RailTypeMask uint64

func (m RailTypeMask) Has(rt RailType) bool { return m&(1<<rt) != 0 }

func (m RailTypeMask) With(rt RailType) RailTypeMask { return m | 1<<rt }

func (m RailTypeMask) Count() int { return bits.OnesCount64(uint64(m)) }

// RailTypeInfo is the static definition of one rail type. Powered and
// Compatible are declared; AllCompatible is derived once by ResolveClosure.
type RailTypeInfo struct {
	Label    string
	MaxSpeed int

	Powered    RailTypeMask // vehicle types this track supplies traction to
	Compatible RailTypeMask // vehicle types that can physically traverse it

	AllCompatible RailTypeMask
}

// RailTypeRegistry owns the allocated rail types. Allocation happens once
// at catalog-load time; afterwards the registry is read-only.
type RailTypeRegistry struct {
	types  []RailTypeInfo
	byName map[string]RailType

	resolved bool
}

func NewRailTypeRegistry() *RailTypeRegistry {
	return &RailTypeRegistry{byName: map[string]RailType{}}
}

// Allocate registers a new rail type and returns its id. The info's
// Powered/Compatible masks may reference types allocated later; the
// closure is computed by ResolveClosure after all allocations.
func (r *RailTypeRegistry) Allocate(info RailTypeInfo) RailType {
	rt := RailType(len(r.types))
	// Every type powers and is compatible with itself.
	info.Powered = info.Powered.With(rt)
	info.Compatible = info.Compatible.With(rt)
	r.types = append(r.types, info)
	r.byName[info.Label] = rt
	r.resolved = false
	return rt
}

func (r *RailTypeRegistry) Count() int { return len(r.types) }

func (r *RailTypeRegistry) Lookup(label string) (RailType, bool) {
	rt, ok := r.byName[label]
	return rt, ok
}

func (r *RailTypeRegistry) Info(rt RailType) *RailTypeInfo {
	return &r.types[rt]
}

func (r *RailTypeRegistry) ValidType(rt RailType) bool {
	return int(rt) < len(r.types)
}

// ResolveClosure recomputes AllCompatible for every type: the set of
// types reachable through any chain of pairwise compatibility. Supplying
// traction implies traversability, so Powered is folded into Compatible
// first.
func (r *RailTypeRegistry) ResolveClosure() {
	for i := range r.types {
		r.types[i].Compatible |= r.types[i].Powered
	}
	for i := range r.types {
		seen := RailTypeMask(1) << RailType(i)
		frontier := r.types[i].Compatible
		for frontier&^seen != 0 {
			next := RailTypeMask(0)
			for rest := frontier &^ seen; rest != 0; rest &= rest - 1 {
				rt := RailType(bits.TrailingZeros64(uint64(rest)))
				if int(rt) < len(r.types) {
					next |= r.types[rt].Compatible
				}
			}
			seen |= frontier
			frontier = next
		}
		r.types[i].AllCompatible = seen | frontier
	}
	r.resolved = true
}

// HasPower reports whether track of type a supplies traction to vehicles
// of type b.
func (r *RailTypeRegistry) HasPower(a, b RailType) bool {
	return r.types[a].Powered.Has(b)
}

// Compatible reports whether track of type a is physically traversable
// by vehicles of type b.
func (r *RailTypeRegistry) Compatible(a, b RailType) bool {
	return r.types[a].Compatible.Has(b)
}

// AllCompatible returns the transitive compatibility closure of a.
func (r *RailTypeRegistry) AllCompatible(a RailType) RailTypeMask {
	return r.types[a].AllCompatible
}
