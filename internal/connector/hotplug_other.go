//go:build !linux

package connector

import "context"

// watchRemoval has no event source here; writes still probe liveness.
func watchRemoval(context.Context, string, string) <-chan struct{} {
	return nil
}
