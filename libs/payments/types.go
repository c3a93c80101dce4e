package payments

import "fmt"

// SettlementMethod selects how a payment reaches finality.
type SettlementMethod string

const (
	// MethodInstant settles immediately, gross.
	MethodInstant SettlementMethod = "INSTANT"
	// MethodPVP settles payment versus payment.
	MethodPVP SettlementMethod = "PVP"
	// MethodNetting defers settlement to a multilateral netting batch.
	MethodNetting SettlementMethod = "NETTING"
	// MethodCorrespondent routes through correspondent bank accounts.
	MethodCorrespondent SettlementMethod = "CORRESPONDENT"
)

// ParseSettlementMethod parses the wire form of a settlement method.
func ParseSettlementMethod(v string) (SettlementMethod, error) {
	switch m := SettlementMethod(v); m {
	case MethodInstant, MethodPVP, MethodNetting, MethodCorrespondent:
		return m, nil
	}
	return "", fmt.Errorf("invalid settlement method: %q", v)
}

// PaymentCategory is the declared purpose of a payment.
type PaymentCategory string

const (
	// CategoryTrade - goods trade payments
	CategoryTrade PaymentCategory = "TRADE"
	// CategoryServices - cross border service fees
	CategoryServices PaymentCategory = "SERVICES"
	// CategoryInvestment - investment and securities flows
	CategoryInvestment PaymentCategory = "INVESTMENT"
	// CategoryPersonal - personal remittances
	CategoryPersonal PaymentCategory = "PERSONAL"
	// CategoryGovernment - government disbursements
	CategoryGovernment PaymentCategory = "GOVERNMENT"
	// CategoryCharity - charitable transfers
	CategoryCharity PaymentCategory = "CHARITY"
	// CategoryPension - pension payouts
	CategoryPension PaymentCategory = "PENSION"
	// CategoryTax - tax remittances
	CategoryTax PaymentCategory = "TAX"
)

// ParsePaymentCategory parses the wire form of a payment purpose.
func ParsePaymentCategory(v string) (PaymentCategory, error) {
	switch c := PaymentCategory(v); c {
	case CategoryTrade, CategoryServices, CategoryInvestment, CategoryPersonal,
		CategoryGovernment, CategoryCharity, CategoryPension, CategoryTax:
		return c, nil
	}
	return "", fmt.Errorf("invalid payment purpose: %q", v)
}
