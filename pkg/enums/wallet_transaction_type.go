package enums

// WalletTransactionType is the direction of a wallet ledger entry.
type WalletTransactionType string

const (
	WalletTransactionTypeCredit WalletTransactionType = "credit"
	WalletTransactionTypeDebit  WalletTransactionType = "debit"
)

var walletTransactionTypes = enumOf("wallet transaction type",
	WalletTransactionTypeCredit,
	WalletTransactionTypeDebit,
)

func (w WalletTransactionType) String() string {
	return string(w)
}

func (w WalletTransactionType) IsValid() bool {
	return walletTransactionTypes.has(w)
}

// ParseWalletTransactionType converts raw input into a WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	return walletTransactionTypes.parse(value)
}
