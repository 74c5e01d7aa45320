package notify

import "context"

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Emit(context.Context, string, any) {}
