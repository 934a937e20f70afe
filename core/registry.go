package core

import (
	"sort"
	"sync"
)

// DefaultRegistry is a thread-safe implementation of Registry.
type DefaultRegistry struct {
	mu       sync.RWMutex
	decoders map[Format]Decoder
	encoders map[Format]Encoder
}

// NewRegistry returns an empty DefaultRegistry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{
		decoders: make(map[Format]Decoder),
		encoders: make(map[Format]Encoder),
	}
}

func (r *DefaultRegistry) RegisterDecoder(f Format, d Decoder) {
	r.mu.Lock()
	r.decoders[f] = d
	r.mu.Unlock()
}

func (r *DefaultRegistry) RegisterEncoder(f Format, e Encoder) {
	r.mu.Lock()
	r.encoders[f] = e
	r.mu.Unlock()
}

// DecoderFor returns the decoder registered for f.  For FormatUnknown it
// falls back to the first registered decoder that accepts unknown input.
func (r *DefaultRegistry) DecoderFor(f Format) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.decoders[f]; ok {
		return d, true
	}
	if f != FormatUnknown {
		return nil, false
	}
	for _, k := range sortedKeys(r.decoders) {
		if d := r.decoders[k]; d.CanDecode(FormatUnknown) {
			return d, true
		}
	}
	return nil, false
}

func (r *DefaultRegistry) EncoderFor(f Format) (Encoder, bool) {
	r.mu.RLock()
	e, ok := r.encoders[f]
	r.mu.RUnlock()
	return e, ok
}

// EncodableFormats lists the formats with a registered encoder, sorted.
func (r *DefaultRegistry) EncodableFormats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.encoders)
}

func sortedKeys[V any](m map[Format]V) []Format {
	out := make([]Format, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
