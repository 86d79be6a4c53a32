package domain

// TxType is the intent of a built transaction.
type TxType string

const (
	TxTypeDeposit  TxType = "deposit"
	TxTypeWithdraw TxType = "withdraw"
)

// BuiltTransaction is an unsigned transaction skeleton. Never submitted.
type BuiltTransaction struct {
	To       string `json:"to"`
	Data     string `json:"data"`  // hex call data
	Value    string `json:"value"` // wei, decimal string
	ChainID  int64  `json:"chainId"`
	GasLimit string `json:"gasLimit"`
	Type     TxType `json:"type"`
}
