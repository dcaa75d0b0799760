package shared

import "context"

// TxManager runs a function inside a single store-level transaction. Any error
// returned by fn rolls the whole transaction back; partial writes are never
// observable.
type TxManager interface {
	// InTx runs fn in a transaction with the store's default isolation.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	// InSerializableTx runs fn in a serializable transaction with an extended
	// timeout. The write paths that fan out to one lookup per line item use
	// this variant.
	InSerializableTx(ctx context.Context, fn func(ctx context.Context) error) error
}
