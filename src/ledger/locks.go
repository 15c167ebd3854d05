package ledger

import "sync"

// bookingLocks serializes ledger mutations per booking within this process.
// The row-level lock taken inside each transaction covers other processes;
// this keeps two local goroutines from even entering the transaction
// concurrently for the same booking.
var bookingLocks sync.Map

func lockBooking(id uint) func() {
	mu, _ := bookingLocks.LoadOrStore(id, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
