package ledger

import "fmt"

// AuthorizeOperator fails with ErrUnauthorizedOperator unless caller is OperatorIdentity.
func AuthorizeOperator(caller string) error {
	if caller != OperatorIdentity {
		return fmt.Errorf("%w: caller %q", ErrUnauthorizedOperator, caller)
	}
	return nil
}
