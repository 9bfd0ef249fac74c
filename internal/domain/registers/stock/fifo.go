package stock

// PlanFIFO splits quantity over lots in the given order.
// Lots must already be sorted with SortFIFO; empty lots are skipped.
// The plan covers less than quantity only when the lots hold less in total.
func PlanFIFO(lots []*Lot, quantity int64) []Deduction {
	plan := make([]Deduction, 0)
	remaining := quantity

	for _, lot := range lots {
		if remaining == 0 {
			break
		}
		if lot.AvailableQty <= 0 {
			continue
		}

		deduct := min(remaining, lot.AvailableQty)
		plan = append(plan, Deduction{
			StockID:   lot.StockID,
			Deducted:  deduct,
			Remaining: lot.AvailableQty - deduct,
		})
		remaining -= deduct
	}

	return plan
}
