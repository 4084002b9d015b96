package shared

import "context"

// TransactionManager runs a function inside a storage transaction so a
// multi-aggregate write set commits or rolls back as one unit. Nested calls
// join the surrounding transaction instead of opening a new one.
type TransactionManager interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
