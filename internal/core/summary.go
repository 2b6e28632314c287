package core

// Summary aggregates both ledgers for a single user. The dashboard client
// computes its own charts; this is the server-side rollup.
type Summary struct {
	TotalIncome  Money `json:"totalIncome"`
	TotalExpense Money `json:"totalExpense"`
	Balance      Money `json:"balance"`
}

// Summarize totals the two ledgers and their difference.
func Summarize(incomes, expenses []Transaction) Summary {
	var in, out int64
	for _, t := range incomes {
		in += t.Amount.Cents
	}
	for _, t := range expenses {
		out += t.Amount.Cents
	}
	return Summary{
		TotalIncome:  Money{Cents: in},
		TotalExpense: Money{Cents: out},
		Balance:      Money{Cents: in - out},
	}
}
