package documents

import "github.com/asdwsxzc123/jiale-mrp/pkg/enums"

// typeCodes is the per-domain document type to sequence prefix table.
var typeCodes = map[enums.DocumentDomain]map[enums.DocumentType]string{
	enums.DomainSales: {
		enums.DocTypeQuotation:     "QT",
		enums.DocTypeSalesOrder:    "SO",
		enums.DocTypeDeliveryOrder: "DO",
		enums.DocTypeInvoice:       "IV",
		enums.DocTypeCashSale:      "CS",
	},
	enums.DomainPurchase: {
		enums.DocTypeRequest:       "PR",
		enums.DocTypeOrder:         "PO",
		enums.DocTypeGoodsReceived: "GR",
		enums.DocTypeInvoice:       "PI",
		enums.DocTypeCashPurchase:  "CP",
		enums.DocTypeReturned:      "RT",
	},
}

// fallbackTypeCodes number types missing from typeCodes.
var fallbackTypeCodes = map[enums.DocumentDomain]string{
	enums.DomainSales:    "SD",
	enums.DomainPurchase: "PD",
}

// TypeCode returns the sequence type code (and document number prefix) for a document type.
func TypeCode(domain enums.DocumentDomain, docType enums.DocumentType) string {
	if code, ok := typeCodes[domain][docType]; ok {
		return code
	}
	return fallbackTypeCodes[domain]
}
