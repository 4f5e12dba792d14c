package router

import (
	"fmt"
	"strings"

	"github.com/xaenox/billing-assistant/internal/gateway"
	"github.com/xaenox/billing-assistant/internal/normalize"
)

func field(item map[string]any, fallback string, keys ...string) string {
	return normalize.PickFirst(item, keys, fallback)
}

// flag renders an indicator that may legitimately be false or empty.
func flag(item map[string]any, keys ...string) string {
	if v, ok := normalize.PickValue(item, keys...); ok {
		return normalize.Stringify(v)
	}
	return "Unknown"
}

func releaseNote(item map[string]any) string {
	if release := field(item, "", "Release Status", "frgkz"); release != "" {
		return fmt.Sprintf("(Release: %s) ", release)
	}
	return ""
}

func formatPurchaseOrderStatus(po string, s gateway.ProcurementStatus) string {
	lines := []string{fmt.Sprintf("Purchase Order %s status:", po)}

	if len(s.POItems) > 0 {
		lines = append(lines, "Purchase Order Items:")
		for _, item := range s.POItems {
			lines = append(lines, fmt.Sprintf("- Item %s: Status %s (Deleted: %s)",
				field(item, "N/A", "ebelp", "PO Item"),
				field(item, "Unknown", "poStatus", "PO Status"),
				flag(item, "poDeleted", "PO Deleted")))
		}
	} else {
		lines = append(lines, "- No purchase order line items returned.")
	}

	if len(s.PRItems) > 0 {
		lines = append(lines, "Related Purchase Requisitions:")
		for _, item := range s.PRItems {
			lines = append(lines, fmt.Sprintf("- PR %s / Item %s: Status %s %s(Deleted: %s)",
				field(item, "N/A", "banfn", "PR Number"),
				field(item, "N/A", "bnfpo", "PR Item"),
				field(item, "Unknown", "prStatus", "PR Status"),
				releaseNote(item),
				flag(item, "prDeleted", "PR Deleted")))
		}
	}
	return strings.Join(lines, "\n")
}

func formatPurchaseRequisitionStatus(pr string, s gateway.ProcurementStatus) string {
	lines := []string{fmt.Sprintf("Purchase Requisition %s status:", pr)}

	if len(s.PRItems) > 0 {
		lines = append(lines, "Requisition Items:")
		for _, item := range s.PRItems {
			linked := ""
			if po := field(item, "", "ebeln", "PO Number"); po != "" {
				linked = " | Linked PO: " + po
			}
			lines = append(lines, fmt.Sprintf("- Item %s: Status %s %s%s (Deleted: %s)",
				field(item, "N/A", "bnfpo", "PR Item"),
				field(item, "Unknown", "prStatus", "PR Status"),
				releaseNote(item),
				linked,
				flag(item, "prDeleted", "PR Deleted")))
		}
	} else {
		lines = append(lines, "- No purchase requisition items returned.")
	}

	if len(s.POItems) > 0 {
		lines = append(lines, "Related Purchase Orders:")
		for _, item := range s.POItems {
			lines = append(lines, fmt.Sprintf("- PO %s / Item %s: Status %s",
				field(item, "N/A", "ebeln", "PO Number"),
				field(item, "N/A", "ebelp", "PO Item"),
				field(item, "Unknown", "poStatus", "PO Status")))
		}
	}
	return strings.Join(lines, "\n")
}

func formatInvoiceStatus(po string, s gateway.ProcurementStatus) string {
	lines := []string{fmt.Sprintf("Invoice status for Purchase Order %s:", po)}

	if len(s.Items) == 0 {
		return strings.Join(append(lines, "- No invoice status returned."), "\n")
	}
	for _, item := range s.Items {
		due := ""
		if d := field(item, "", "paymentDueOn"); d != "" {
			due = ", Payment Due " + d
		}
		lines = append(lines, fmt.Sprintf("- Invoice %s: Value %s, Status %s, Doc Date %s, Posting Date %s%s",
			field(item, "N/A", "invoiceNo"),
			field(item, "N/A", "invoiceValue"),
			field(item, "Unknown", "livStatus"),
			field(item, "N/A", "invoiceDocDate"),
			field(item, "N/A", "invoicePostDate"),
			due))
	}
	return strings.Join(lines, "\n")
}
