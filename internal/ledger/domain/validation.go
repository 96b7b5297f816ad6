package domain

// ValidateBalanced ensures ledger lines sum to a balanced double-entry posting.
func ValidateBalanced(lines []Line) error {
	if len(lines) < 2 {
		return ErrInvalidEntryLines
	}

	var debitTotal int64
	var creditTotal int64
	for _, line := range lines {
		if line.AmountCents < 0 {
			return ErrInvalidLineAmount
		}
		switch line.Direction {
		case DirectionDebit:
			debitTotal += line.AmountCents
		case DirectionCredit:
			creditTotal += line.AmountCents
		default:
			return ErrInvalidLineDirection
		}
	}

	if debitTotal != creditTotal {
		return ErrUnbalancedEntry
	}
	return nil
}
