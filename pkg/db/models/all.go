package models

// All lists every persisted model, in dependency order, for AutoMigrate in dev and tests.
func All() []any {
	return []any{
		&DocumentSequence{},
		&TraceCodeCounter{},
		&Customer{},
		&Supplier{},
		&StockItem{},
		&StockLocation{},
		&CommercialDocument{},
		&DocumentLineItem{},
		&StockBalance{},
		&StockTransaction{},
		&StockTransactionItem{},
		&IncomingInspection{},
		&RawMaterialBatch{},
		&BOM{},
		&BOMItem{},
		&JobOrder{},
		&JobOrderMaterial{},
		&FinishedProduct{},
		&FinishedProductMaterial{},
		&Payment{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
