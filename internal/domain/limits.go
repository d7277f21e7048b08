package domain

// Per-currency submission floors, in micros. Amounts below the floor are
// rejected at validation time, before anything is persisted.
var (
	minDepositMicros = map[string]int64{
		CurrencyBDT: 500_000_000, // 500 BDT
		CurrencyINR: 500_000_000, // 500 INR
	}
	minWithdrawalMicros = map[string]int64{
		CurrencyBDT: 1_000_000_000, // 1000 BDT
		CurrencyINR: 1_000_000_000, // 1000 INR
	}
	minExchangeMicros = map[string]int64{
		CurrencyBDT: 100_000_000, // 100 BDT
		CurrencyINR: 100_000_000, // 100 INR
	}
)

// MinDeposit returns the minimum deposit amount for currency, in micros.
func MinDeposit(currency string) int64 {
	return minDepositMicros[currency]
}

// MinWithdrawal returns the minimum withdrawal amount for currency, in micros.
func MinWithdrawal(currency string) int64 {
	return minWithdrawalMicros[currency]
}

// MinExchange returns the minimum exchange source amount for currency, in micros.
func MinExchange(currency string) int64 {
	return minExchangeMicros[currency]
}
