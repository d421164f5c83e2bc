package core

// Capability states how an adapter provides an operation: not at all,
// natively against the venue API, or emulated from other primitives
// (for example candles built from trade history).
type Capability int

const (
	// CapUnsupported means the adapter does not provide the operation.
	CapUnsupported Capability = iota
	// CapNative means the venue API provides the operation directly.
	CapNative
	// CapEmulated means the operation is synthesized from other primitives.
	CapEmulated
)

// String returns the string representation of the capability.
func (c Capability) String() string {
	return [...]string{"unsupported", "native", "emulated"}[c]
}

// Supported reports whether the capability is available in any form.
func (c Capability) Supported() bool {
	return c != CapUnsupported
}

// CapabilitySet maps operation names (fetchMarkets, createOrder, ...) to
// their capability. Missing entries mean unsupported.
type CapabilitySet map[string]Capability

// Get returns the capability of the named operation.
func (s CapabilitySet) Get(name string) Capability {
	return s[name]
}

// Supports reports whether the named operation is available in any form.
func (s CapabilitySet) Supports(name string) bool {
	return s[name].Supported()
}

// Merge overlays other on top of s and returns the merged set. Neither
// input is mutated.
func (s CapabilitySet) Merge(other CapabilitySet) CapabilitySet {
	merged := make(CapabilitySet, len(s)+len(other))
	for name, capability := range s {
		merged[name] = capability
	}
	for name, capability := range other {
		merged[name] = capability
	}
	return merged
}
