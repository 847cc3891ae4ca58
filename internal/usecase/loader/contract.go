package loader

import "context"

// Source returns the raw structured-notes payload of a material.
type Source interface {
	Load(ctx context.Context, ref string) ([]byte, error)
}
