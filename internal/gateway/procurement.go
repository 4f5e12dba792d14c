package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

const (
	msgPurchaseOrderMissing       = "Purchase order missing"
	msgPurchaseRequisitionMissing = "Purchase requisition missing"
	msgNoBackendResponse          = "No response from backend service"
)

// ProcurementStatus is the normalized answer of the procurement status API.
// Success requires both the backend flag and at least one returned item.
type ProcurementStatus struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	POItems []map[string]any `json:"poItems,omitempty"`
	PRItems []map[string]any `json:"prItems,omitempty"`
	Items   []map[string]any `json:"items,omitempty"`
}

type procurementResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	POItems []map[string]any `json:"poItems"`
	PRItems []map[string]any `json:"prItems"`
	Items   []map[string]any `json:"items"`
}

func (g *Gateway) procurementStatus(ctx context.Context, path string) (procurementResponse, bool) {
	var resp procurementResponse
	body, err := g.procurement.Get(ctx, path)
	if err != nil {
		return resp, false
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		g.logger.Error("Failed to decode procurement status", zap.String("path", path), zap.Error(err))
		return resp, false
	}
	return resp, true
}

func (g *Gateway) prpoStatus(ctx context.Context, param, number string) ProcurementStatus {
	path := fmt.Sprintf("/ptp/prpo/getstatus?%s=%s&ISystemAlias=%s",
		param, url.QueryEscape(number), g.opts.ProcurementAlias)
	resp, ok := g.procurementStatus(ctx, path)
	if !ok {
		return ProcurementStatus{Message: msgNoBackendResponse}
	}
	return ProcurementStatus{
		Success: resp.Success && (len(resp.POItems) > 0 || len(resp.PRItems) > 0),
		Message: resp.Message,
		POItems: resp.POItems,
		PRItems: resp.PRItems,
	}
}

func (g *Gateway) PurchaseOrderStatus(ctx context.Context, purchaseOrder string) ProcurementStatus {
	if purchaseOrder == "" {
		return ProcurementStatus{Message: msgPurchaseOrderMissing}
	}
	return g.prpoStatus(ctx, "PurchaseOrder", purchaseOrder)
}

func (g *Gateway) PurchaseRequisitionStatus(ctx context.Context, purchaseRequisition string) ProcurementStatus {
	if purchaseRequisition == "" {
		return ProcurementStatus{Message: msgPurchaseRequisitionMissing}
	}
	return g.prpoStatus(ctx, "PurchaseRequisition", purchaseRequisition)
}

// InvoiceStatus looks up the invoices posted against a purchase order.
func (g *Gateway) InvoiceStatus(ctx context.Context, purchaseOrder string) ProcurementStatus {
	if purchaseOrder == "" {
		return ProcurementStatus{Message: msgPurchaseOrderMissing}
	}
	path := fmt.Sprintf("/ptp/invoicestatus?PurchaseOrder=%s&ISystemAlias=%s",
		url.QueryEscape(purchaseOrder), g.opts.ProcurementAlias)
	resp, ok := g.procurementStatus(ctx, path)
	if !ok {
		return ProcurementStatus{Message: msgNoBackendResponse}
	}
	return ProcurementStatus{
		Success: resp.Success && len(resp.Items) > 0,
		Message: resp.Message,
		Items:   resp.Items,
	}
}
