package chatsdk

import (
	"errors"
	"io"
	"strings"
)

// TextStream reads incremental text fragments from a provider.
type TextStream interface {
	// Read returns the next delta. io.EOF signals a clean end of stream.
	Read() (string, error)

	// Close releases the underlying connection.
	Close() error
}

// StreamToCallback drains a stream, invoking callback with each delta in
// arrival order. The stream is always closed before returning.
func StreamToCallback(stream TextStream, callback func(delta string) error) error {
	defer stream.Close()

	for {
		delta, err := stream.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if delta == "" {
			continue
		}
		if err := callback(delta); err != nil {
			return err
		}
	}
}

// Accumulator turns per-chunk deltas into full-accumulated snapshots. Each
// snapshot is a superset of the previous one, so a consumer can overwrite its
// display buffer instead of tracking appends.
type Accumulator struct {
	buf      strings.Builder
	onUpdate func(full string)
}

// NewAccumulator creates an accumulator. onUpdate may be nil.
func NewAccumulator(onUpdate func(full string)) *Accumulator {
	return &Accumulator{onUpdate: onUpdate}
}

// Add appends a delta and emits the accumulated text so far.
func (a *Accumulator) Add(delta string) {
	a.buf.WriteString(delta)
	if a.onUpdate != nil {
		a.onUpdate(a.buf.String())
	}
}

// String returns the accumulated text.
func (a *Accumulator) String() string {
	return a.buf.String()
}

// Len returns the number of accumulated bytes.
func (a *Accumulator) Len() int {
	return a.buf.Len()
}

// CollectStream drains a stream into a single string.
func CollectStream(stream TextStream) (string, error) {
	acc := NewAccumulator(nil)
	err := StreamToCallback(stream, func(delta string) error {
		acc.Add(delta)
		return nil
	})
	return acc.String(), err
}
