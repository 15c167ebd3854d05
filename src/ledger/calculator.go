package ledger

import (
	"crms/src/models"
	"crms/src/types"

	"github.com/shopspring/decimal"
)

// Totals is the derived financial state of a booking. It is computed from
// the payment rows and the booking total on every read and every mutation;
// nothing in here is authoritative on its own.
type Totals struct {
	TotalPaid decimal.Decimal
	Balance   decimal.Decimal
	Status    types.PaymentStatus
}

// ComputeTotals derives the paid sum, outstanding balance and payment status.
// A nil total means the booking has not been priced yet: the balance is zero
// and the status stays pending no matter what was paid.
func ComputeTotals(total *decimal.Decimal, payments []*models.Payment) Totals {
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	if total == nil {
		return Totals{TotalPaid: paid, Balance: decimal.Zero, Status: types.PAYMENT_PENDING}
	}
	balance := total.Sub(paid)
	status := types.PAYMENT_UNPAID
	if balance.LessThanOrEqual(decimal.Zero) {
		status = types.PAYMENT_PAID
	}
	return Totals{TotalPaid: paid, Balance: balance, Status: status}
}

// RunningBalances returns the balance snapshot after each payment, in the
// order given. The caller is responsible for passing payments in ledger
// order (paid_at, then id).
func RunningBalances(total decimal.Decimal, payments []*models.Payment) []decimal.Decimal {
	balances := make([]decimal.Decimal, len(payments))
	running := total
	for i, p := range payments {
		running = running.Sub(p.Amount)
		balances[i] = running
	}
	return balances
}
