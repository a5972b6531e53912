// pkg/rc/errors.go
package rc

import "fmt"

// CompareExchangeError is returned by a failed CompareExchange-family
// call. It carries the value actually installed in the slot at the
// moment of failure, so a caller running its own retry loop does not
// need a separate load.
type CompareExchangeError[T Object[T]] struct {
	Current Snapshot[T]
}

func (e *CompareExchangeError[T]) Error() string {
	return fmt.Sprintf("rc: compare-and-swap failed, current value is %s", e.Current.describe())
}
