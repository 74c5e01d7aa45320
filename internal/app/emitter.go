package app

import "context"

// Emitter publishes domain events after a successful commit. Implementations
// are best effort: they must swallow delivery failures so a notification
// problem can never affect an already committed transaction.
type Emitter interface {
	Emit(ctx context.Context, name string, payload any)
}
