package router

import (
	"context"

	"github.com/xaenox/billing-assistant/internal/gateway"
	"github.com/xaenox/billing-assistant/internal/models"
	"github.com/xaenox/billing-assistant/internal/normalize"
)

const (
	msgAskPurchaseOrder        = "Please provide a purchase order number so I can check its status."
	msgAskInvoicePurchaseOrder = "Please provide a purchase order number so I can check the related invoice status."
	msgAskPurchaseRequisition  = "Please provide a purchase requisition number so I can check its status."
	msgAskDocumentType         = "Are you looking for the status of a purchase order, invoice, or purchase requisition?"
)

type statusContext struct {
	DocumentNumber  string                    `json:"documentNumber"`
	StatusSummary   string                    `json:"statusSummary"`
	ServiceResponse gateway.ProcurementStatus `json:"serviceResponse"`
}

func (r *Router) purchaseOrderStatus(ctx context.Context, payload map[string]any) *Result {
	po := normalize.StringField(payload, "purchaseOrder")
	if po == "" {
		return reply(msgAskPurchaseOrder)
	}
	status := r.gw.PurchaseOrderStatus(ctx, po)
	return r.withContext(models.CategoryPurchaseOrderStatus, statusContext{
		DocumentNumber:  po,
		StatusSummary:   formatPurchaseOrderStatus(po, status),
		ServiceResponse: status,
	})
}

func (r *Router) invoiceStatus(ctx context.Context, payload map[string]any) *Result {
	po := normalize.StringField(payload, "purchaseOrder")
	if po == "" {
		return reply(msgAskInvoicePurchaseOrder)
	}
	status := r.gw.InvoiceStatus(ctx, po)
	return r.withContext(models.CategoryInvoiceStatus, statusContext{
		DocumentNumber:  po,
		StatusSummary:   formatInvoiceStatus(po, status),
		ServiceResponse: status,
	})
}

func (r *Router) purchaseRequisitionStatus(ctx context.Context, payload map[string]any) *Result {
	pr := normalize.StringField(payload, "purchaseRequisition")
	if pr == "" {
		return reply(msgAskPurchaseRequisition)
	}
	status := r.gw.PurchaseRequisitionStatus(ctx, pr)
	return r.withContext(models.CategoryPurchaseRequisition, statusContext{
		DocumentNumber:  pr,
		StatusSummary:   formatPurchaseRequisitionStatus(pr, status),
		ServiceResponse: status,
	})
}

func (r *Router) statusClarification(payload map[string]any) *Result {
	if ref := normalize.StringField(payload, "referenceNumber"); ref != "" {
		return reply(msgAskDocumentType + " Please confirm what document type the number " + ref + " refers to.")
	}
	return reply(msgAskDocumentType + " Please share the relevant document number as well.")
}
