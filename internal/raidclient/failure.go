package raidclient

import "fmt"

// FailureKind classifies why a Get or Put could not complete, per the
// error taxonomy in spec.md §7. Replaces the original's quit()-or-raise
// split with a single recoverable error value callers inspect.
type FailureKind int

const (
	// FailureOutOfRange: the logical block number was outside
	// [0, TOTAL_NUM_BLOCKS).
	FailureOutOfRange FailureKind = iota
	// FailureTwoFaults: two servers in the same stripe were unreachable
	// or corrupted in the same operation — outside the single-fault
	// tolerance model, so the operation is abandoned rather than guessed.
	FailureTwoFaults
	// FailureDataLoss: both the data and parity server for a block were
	// already known-failed before the Put was attempted, or became so
	// mid-write with no durable representation of the new value.
	FailureDataLoss
)

// Failure is returned by Client.Get/Put (and VerifyRAID5Consistency for an
// out-of-range block) when the operation cannot complete; callers can use
// errors.As to inspect it. Repair reports its errors as plain errors.
type Failure struct {
	Kind  FailureKind
	Block int
	Err   error // optional underlying transport/logic error
}

func (f *Failure) Error() string {
	switch f.Kind {
	case FailureOutOfRange:
		return fmt.Sprintf("raid5: block %d out of range", f.Block)
	case FailureTwoFaults:
		return fmt.Sprintf("raid5: block %d unrecoverable, two faults in one stripe", f.Block)
	case FailureDataLoss:
		return fmt.Sprintf("raid5: block %d cannot be written, data and parity server both failed", f.Block)
	default:
		return fmt.Sprintf("raid5: block %d operation failed", f.Block)
	}
}

func (f *Failure) Unwrap() error {
	return f.Err
}
