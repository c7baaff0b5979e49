package shared

import "context"

// Operator is the identity snapshot attached to every mutating request.
// Username is copied into ledger rows rather than joined, so historical
// attribution survives account renames.
type Operator struct {
	UserID   int64
	Username string
}

type operatorContextKey struct{}

// ContextWithOperator stores the operator in context.
func ContextWithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorContextKey{}, op)
}

// OperatorFromContext extracts the operator from context.
func OperatorFromContext(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorContextKey{}).(Operator)
	return op, ok
}
