package multitenant

import (
	"context"
	"fmt"
)

// Carrier is a slot that holds identity outside the context value graph: a Store, or an
// integration mirroring identity into ambient state such as a database session.
type Carrier interface {
	// Capture reads the carrier's current identity.
	Capture() Snapshot
	// Clear removes every field.
	Clear(ctx context.Context) error
	// Apply replaces the carrier's identity with the fields present in snap.
	Apply(ctx context.Context, snap Snapshot) error
}

// Snapshot is an immutable copy of an identity tuple taken at a point in time.
type Snapshot struct {
	id Identity
}

// SnapshotOf wraps an identity value.
func SnapshotOf(id Identity) Snapshot {
	return Snapshot{id: id}
}

// CaptureFrom reads carrier into a snapshot.
func CaptureFrom(carrier Carrier) Snapshot {
	if carrier == nil {
		return Snapshot{}
	}
	return carrier.Capture()
}

// Capture reads the identity visible on ctx: the bound store when there is one,
// otherwise the identity value.
func Capture(ctx context.Context) Snapshot {
	return Snapshot{id: Current(ctx)}
}

// Identity returns the captured tuple.
func (s Snapshot) Identity() Identity {
	return s.id
}

// ApplyTo clears carrier and then sets only the captured fields, so a field absent from
// the snapshot is absent on the carrier afterwards.
func (s Snapshot) ApplyTo(ctx context.Context, carrier Carrier) error {
	if err := carrier.Clear(ctx); err != nil {
		return fmt.Errorf("clear identity: %w", err)
	}
	if s.id.IsZero() {
		return nil
	}
	if err := carrier.Apply(ctx, s); err != nil {
		return fmt.Errorf("apply identity: %w", err)
	}
	return nil
}
