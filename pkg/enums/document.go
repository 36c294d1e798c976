package enums

import "fmt"

// DocumentDomain separates sales and purchase documents; the two never share numbering.
type DocumentDomain string

const (
	DomainSales    DocumentDomain = "sales"
	DomainPurchase DocumentDomain = "purchase"
)

var validDocumentDomains = []DocumentDomain{
	DomainSales,
	DomainPurchase,
}

func (d DocumentDomain) IsValid() bool {
	for _, candidate := range validDocumentDomains {
		if candidate == d {
			return true
		}
	}
	return false
}

func ParseDocumentDomain(value string) (DocumentDomain, error) {
	for _, candidate := range validDocumentDomains {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid document domain %q", value)
}

// DocumentType maps to the document_type_enum column. INVOICE exists in both domains.
type DocumentType string

const (
	DocTypeQuotation     DocumentType = "QUOTATION"
	DocTypeSalesOrder    DocumentType = "SALES_ORDER"
	DocTypeDeliveryOrder DocumentType = "DELIVERY_ORDER"
	DocTypeInvoice       DocumentType = "INVOICE"
	DocTypeCashSale      DocumentType = "CASH_SALE"

	DocTypeRequest       DocumentType = "REQUEST"
	DocTypeOrder         DocumentType = "ORDER"
	DocTypeGoodsReceived DocumentType = "GOODS_RECEIVED"
	DocTypeCashPurchase  DocumentType = "CASH_PURCHASE"
	DocTypeReturned      DocumentType = "RETURNED"
)

var documentTypesByDomain = map[DocumentDomain][]DocumentType{
	DomainSales: {
		DocTypeQuotation,
		DocTypeSalesOrder,
		DocTypeDeliveryOrder,
		DocTypeInvoice,
		DocTypeCashSale,
	},
	DomainPurchase: {
		DocTypeRequest,
		DocTypeOrder,
		DocTypeGoodsReceived,
		DocTypeInvoice,
		DocTypeCashPurchase,
		DocTypeReturned,
	},
}

// DocumentTypesFor lists the types a domain accepts.
func DocumentTypesFor(domain DocumentDomain) []DocumentType {
	return documentTypesByDomain[domain]
}

// ValidFor reports whether the type belongs to the given domain.
func (t DocumentType) ValidFor(domain DocumentDomain) bool {
	for _, candidate := range documentTypesByDomain[domain] {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseDocumentType converts raw input into a DocumentType of the given domain.
func ParseDocumentType(domain DocumentDomain, value string) (DocumentType, error) {
	for _, candidate := range documentTypesByDomain[domain] {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid %s document type %q", domain, value)
}

// DocumentStatus maps to the document_status_enum column.
type DocumentStatus string

const (
	DocumentStatusDraft       DocumentStatus = "DRAFT"
	DocumentStatusApproved    DocumentStatus = "APPROVED"
	DocumentStatusCancelled   DocumentStatus = "CANCELLED"
	DocumentStatusTransferred DocumentStatus = "TRANSFERRED"
)

var validDocumentStatuses = []DocumentStatus{
	DocumentStatusDraft,
	DocumentStatusApproved,
	DocumentStatusCancelled,
	DocumentStatusTransferred,
}

func (s DocumentStatus) IsValid() bool {
	for _, candidate := range validDocumentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseDocumentStatus(value string) (DocumentStatus, error) {
	for _, candidate := range validDocumentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid document status %q", value)
}
