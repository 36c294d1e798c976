package enums

import "fmt"

// StockTransactionType maps to the stock_transaction_type_enum column.
type StockTransactionType string

const (
	StockReceived    StockTransactionType = "RECEIVED"
	StockIssue       StockTransactionType = "ISSUE"
	StockAdjustment  StockTransactionType = "ADJUSTMENT"
	StockTransfer    StockTransactionType = "TRANSFER"
	StockAssembly    StockTransactionType = "ASSEMBLY"
	StockDisassembly StockTransactionType = "DISASSEMBLY"
)

var validStockTransactionTypes = []StockTransactionType{
	StockReceived,
	StockIssue,
	StockAdjustment,
	StockTransfer,
	StockAssembly,
	StockDisassembly,
}

func (t StockTransactionType) IsValid() bool {
	for _, candidate := range validStockTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

func ParseStockTransactionType(value string) (StockTransactionType, error) {
	for _, candidate := range validStockTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock transaction type %q", value)
}
