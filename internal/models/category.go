package models

import "fmt"

// Category is the intent tag produced by the classifier
type Category string

const (
	CategoryInvoiceRequest      Category = "invoice-request-query"
	CategoryDownloadInvoice     Category = "download-invoice"
	CategorySOARequest          Category = "soa-request"
	CategoryCustomerAnalytics   Category = "customer-analytics"
	CategoryGenericQuery        Category = "generic-query"
	CategoryPurchaseOrderStatus Category = "purchase-order-status"
	CategoryInvoiceStatus       Category = "invoice-status"
	CategoryPurchaseRequisition Category = "purchase-requisition-status"
	CategoryStatusClarification Category = "status-clarification"
)

// Categories lists every supported tag.
var Categories = []Category{
	CategoryInvoiceRequest,
	CategoryDownloadInvoice,
	CategorySOARequest,
	CategoryCustomerAnalytics,
	CategoryGenericQuery,
	CategoryPurchaseOrderStatus,
	CategoryInvoiceStatus,
	CategoryPurchaseRequisition,
	CategoryStatusClarification,
}

// UnsupportedCategoryError is returned for tags outside Categories.
type UnsupportedCategoryError struct {
	Tag string
}

func (e *UnsupportedCategoryError) Error() string {
	return fmt.Sprintf("%s is not in the supported categories", e.Tag)
}

// ParseCategory validates a classifier tag.
func ParseCategory(tag string) (Category, error) {
	for _, c := range Categories {
		if string(c) == tag {
			return c, nil
		}
	}
	return "", &UnsupportedCategoryError{Tag: tag}
}

// Profile selects the category set a deployment classifies into.
type Profile string

const (
	ProfileFinance Profile = "finance"
	ProfileMarine  Profile = "marine"
)

// Categories returns the tags the classifier of p may produce.
func (p Profile) Categories() []Category {
	switch p {
	case ProfileMarine:
		return []Category{
			CategoryPurchaseOrderStatus,
			CategoryInvoiceStatus,
			CategoryPurchaseRequisition,
			CategoryStatusClarification,
			CategoryGenericQuery,
		}
	default:
		return []Category{
			CategoryInvoiceRequest,
			CategoryDownloadInvoice,
			CategorySOARequest,
			CategoryCustomerAnalytics,
			CategoryGenericQuery,
		}
	}
}
