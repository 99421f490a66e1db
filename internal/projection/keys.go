package projection

import (
	"fmt"
	"strings"
)

// Business distinguishes in-force business from new business
type Business int

const (
	BusinessOld Business = iota
	BusinessNew
)

func (b Business) String() string {
	if b == BusinessNew {
		return "new"
	}
	return "old"
}

// Deposit distinguishes the classic deposit (KDS) from the unit-linked deposit (Fonds)
type Deposit int

const (
	DepositKDS Deposit = iota
	DepositFonds
)

func (d Deposit) String() string {
	if d == DepositFonds {
		return "fonds"
	}
	return "kds"
}

// CohortKey identifies one cohort chain
type CohortKey struct {
	LoB        string
	Generation int
	Business   Business
	Deposit    Deposit
}

func (k CohortKey) String() string {
	return fmt.Sprintf("%s/%d/%s/%s", k.LoB, k.Generation, k.Business, k.Deposit)
}

// Sibling returns the key of the same cohort in the other deposit
func (k CohortKey) Sibling() CohortKey {
	s := k
	if k.Deposit == DepositKDS {
		s.Deposit = DepositFonds
	} else {
		s.Deposit = DepositKDS
	}
	return s
}

// Less orders keys with Fonds cohorts first, then by LoB, generation and business
func (k CohortKey) Less(o CohortKey) bool {
	if k.Deposit != o.Deposit {
		return k.Deposit == DepositFonds
	}
	if k.LoB != o.LoB {
		return k.LoB < o.LoB
	}
	if k.Generation != o.Generation {
		return k.Generation < o.Generation
	}
	return k.Business < o.Business
}

// ParseBusiness accepts "old" and "new"
func ParseBusiness(s string) (Business, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "old":
		return BusinessOld, nil
	case "new":
		return BusinessNew, nil
	}
	return 0, fmt.Errorf("unknown business %q", s)
}

// ParseDeposit accepts "kds" and "fonds"
func ParseDeposit(s string) (Deposit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kds":
		return DepositKDS, nil
	case "fonds":
		return DepositFonds, nil
	}
	return 0, fmt.Errorf("unknown deposit %q", s)
}
