// Package evidence persists detection source images and hands back opaque
// references. The settlement core stores the reference on the violation
// and never interprets it.
package evidence

import "context"

type Store interface {
	// Save persists the image and returns its reference.
	Save(ctx context.Context, filename string, contents []byte) (string, error)
}
