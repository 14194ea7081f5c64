package model

// AccountType classifies the kind of account an export came from.
type AccountType string

const (
	AccountTypeBank      AccountType = "bank"
	AccountTypeCard      AccountType = "card"
	AccountTypeCrypto    AccountType = "crypto"
	AccountTypeBrokerage AccountType = "brokerage"
)

// Account is created on first sighting of a new account identifier during
// ingestion. Accounts are never deleted, only relabeled.
type Account struct {
	ID       string
	Name     string
	Type     AccountType
	Currency string
}
