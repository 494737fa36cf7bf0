package operation

import (
	"context"

	"github.com/dgellow/auth-front/internal/autherr"
)

// Invalid stands in for a navigation target no operation can serve (unknown
// or missing mode). It exists so even that failure surfaces through the
// uniform Start/error-hook path instead of throwing at construction.
type Invalid struct {
	base
}

func NewInvalid(deps Deps, err error) *Invalid {
	op := &Invalid{base: newBase(deps)}
	op.self = op
	op.initErr = err
	return op
}

func (op *Invalid) name() string { return "invalid" }

func (op *Invalid) process(_ context.Context) error { return op.initErr }

func (op *Invalid) OriginalURL(_ context.Context) (string, error) {
	return "", autherr.Wrap(op.initErr)
}
