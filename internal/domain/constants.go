package domain

const (
	CurrencyBDT = "BDT"
	CurrencyINR = "INR"

	TxTypeDeposit    = "DEPOSIT"
	TxTypeWithdrawal = "WITHDRAWAL"
	TxTypeExchange   = "EXCHANGE"

	TxStatusPending   = "PENDING"
	TxStatusSuccess   = "SUCCESS"
	TxStatusFailed    = "FAILED"
	TxStatusCancelled = "CANCELLED"
	TxStatusRejected  = "REJECTED"

	RoleUser  = "user"
	RoleAdmin = "admin"
)

// SupportedCurrencies lists the currencies the ledger accepts, in the
// deterministic order used when locking wallet rows.
var SupportedCurrencies = []string{CurrencyBDT, CurrencyINR}

// IsSupportedCurrency reports whether the ledger holds balances in currency.
func IsSupportedCurrency(currency string) bool {
	switch currency {
	case CurrencyBDT, CurrencyINR:
		return true
	default:
		return false
	}
}

// IsTerminalStatus reports whether no further transitions are permitted.
func IsTerminalStatus(status string) bool {
	switch status {
	case TxStatusSuccess, TxStatusFailed, TxStatusCancelled, TxStatusRejected:
		return true
	default:
		return false
	}
}
