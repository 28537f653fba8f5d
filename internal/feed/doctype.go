// Package feed implements the unified document aggregation engine: the
// tagged-union document model, time window resolution, filter compilation,
// role-based visibility classification, ordering, and the in-memory snapshot
// evaluation path. Everything here is pure; storage access lives in
// internal/repository.
package feed

import (
	"fmt"
	"strings"
)

// DocType identifies one of the seven workflow entity kinds merged into the
// feed. The string values are the tokens stored in the union's doc_type
// column.
type DocType string

const (
	DocRequisition     DocType = "requisition"
	DocCanvass         DocType = "canvass"
	DocPurchaseOrder   DocType = "purchase_order"
	DocDeliveryReceipt DocType = "delivery_receipt"
	DocInvoice         DocType = "invoice"
	DocPaymentRequest  DocType = "payment_request"
	DocNonRequisition  DocType = "non_requisition"
)

// AllDocTypes lists every document type in priority order. The ordinal
// position is the stable sort key applied alongside every custom ordering.
var AllDocTypes = []DocType{
	DocRequisition,
	DocCanvass,
	DocPurchaseOrder,
	DocInvoice,
	DocDeliveryReceipt,
	DocPaymentRequest,
	DocNonRequisition,
}

var docTypePriority = func() map[DocType]int {
	m := make(map[DocType]int, len(AllDocTypes))
	for i, t := range AllDocTypes {
		m[t] = i + 1
	}
	return m
}()

// Priority returns the fixed ordinal used as a stable secondary sort key.
// Unknown types sort last.
func (t DocType) Priority() int {
	if p, ok := docTypePriority[t]; ok {
		return p
	}
	return len(AllDocTypes) + 1
}

// Valid reports whether t is one of the seven known document types.
func (t DocType) Valid() bool {
	_, ok := docTypePriority[t]
	return ok
}

var displayLabels = map[DocType]string{
	DocRequisition:     "R.S.",
	DocCanvass:         "Canvass",
	DocPurchaseOrder:   "Order",
	DocDeliveryReceipt: "Delivery",
	DocInvoice:         "Invoice",
	DocPaymentRequest:  "Voucher",
	DocNonRequisition:  "Non-R.S.",
}

// DisplayLabel returns the dashboard label for t. Unknown types fall back to
// the raw token.
func (t DocType) DisplayLabel() string {
	if l, ok := displayLabels[t]; ok {
		return l
	}
	return string(t)
}

var draftStatuses = map[DocType]string{
	DocRequisition:     "rs_draft",
	DocCanvass:         "cs_draft",
	DocPurchaseOrder:   "po_draft",
	DocDeliveryReceipt: "dr_draft",
	DocInvoice:         "si_draft",
	DocPaymentRequest:  "pr_draft",
	DocNonRequisition:  "nrs_draft",
}

// DraftStatus returns the entity-local status marking a draft of type t.
func (t DocType) DraftStatus() string {
	return draftStatuses[t]
}

// DraftStatuses returns a copy of the per-type draft status table. The
// repository uses it to render the non-draft approval guard in SQL from the
// same source of truth the classifier uses.
func DraftStatuses() map[DocType]string {
	m := make(map[DocType]string, len(draftStatuses))
	for t, s := range draftStatuses {
		m[t] = s
	}
	return m
}

// ── Doc type aliases ─────────────────────────────────────────────────────────

// docTypeAliases maps normalized alias tokens to canonical document types.
// Keys are lowercased with all non-alphanumerics stripped, so "R.S.",
// "r-s" and "rs" all resolve.
var docTypeAliases = map[string]DocType{
	"rs":              DocRequisition,
	"requisition":     DocRequisition,
	"requisitionslip": DocRequisition,
	"cs":              DocCanvass,
	"canvass":         DocCanvass,
	"po":              DocPurchaseOrder,
	"order":           DocPurchaseOrder,
	"purchaseorder":   DocPurchaseOrder,
	"dr":              DocDeliveryReceipt,
	"delivery":        DocDeliveryReceipt,
	"deliveryreceipt": DocDeliveryReceipt,
	"si":              DocInvoice,
	"invoice":         DocInvoice,
	"salesinvoice":    DocInvoice,
	"pr":              DocPaymentRequest,
	"voucher":         DocPaymentRequest,
	"paymentrequest":  DocPaymentRequest,
	"nrs":             DocNonRequisition,
	"nonrs":           DocNonRequisition,
	"nonrequisition":  DocNonRequisition,
}

// ResolveDocTypeAlias resolves a user-supplied document type token to its
// canonical type. Matching is case- and punctuation-insensitive. The second
// return is false for unknown tokens, in which case the compiler falls back
// to a substring match against the literal doc_type column.
func ResolveDocTypeAlias(token string) (DocType, bool) {
	t, ok := docTypeAliases[normalizeAlias(token)]
	return t, ok
}

func normalizeAlias(token string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(token) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ── Ref number formatting ────────────────────────────────────────────────────
//
// One pure function per document type. Draft documents render a temporary
// number carrying the TMP marker; finalized documents render the assigned
// series. The SQL union builder mirrors these rules; the two must agree
// byte-for-byte.

// DraftMarker is the segment present in every draft ref number and absent
// from every finalized one.
const DraftMarker = "TMP-"

// RequisitionRefNumber formats a requisition slip number.
func RequisitionRefNumber(id int64, series string, draft bool) string {
	return refNumber("RS", id, series, draft)
}

// CanvassRefNumber formats a canvass sheet number.
func CanvassRefNumber(id int64, series string, draft bool) string {
	return refNumber("CS", id, series, draft)
}

// PurchaseOrderRefNumber formats a purchase order number.
func PurchaseOrderRefNumber(id int64, series string, draft bool) string {
	return refNumber("PO", id, series, draft)
}

// DeliveryReceiptRefNumber formats a delivery receipt number.
func DeliveryReceiptRefNumber(id int64, series string, draft bool) string {
	return refNumber("DR", id, series, draft)
}

// InvoiceRefNumber formats a supplier invoice number.
func InvoiceRefNumber(id int64, series string, draft bool) string {
	return refNumber("SI", id, series, draft)
}

// PaymentRequestRefNumber formats a payment request (voucher) number.
func PaymentRequestRefNumber(id int64, series string, draft bool) string {
	return refNumber("PR", id, series, draft)
}

// NonRequisitionRefNumber formats a non-requisition number.
func NonRequisitionRefNumber(id int64, series string, draft bool) string {
	return refNumber("NRS", id, series, draft)
}

func refNumber(prefix string, id int64, series string, draft bool) string {
	if draft {
		return fmt.Sprintf("%s-%s%d", prefix, DraftMarker, id)
	}
	return fmt.Sprintf("%s-%s", prefix, series)
}

var refNumberFuncs = map[DocType]func(int64, string, bool) string{
	DocRequisition:     RequisitionRefNumber,
	DocCanvass:         CanvassRefNumber,
	DocPurchaseOrder:   PurchaseOrderRefNumber,
	DocDeliveryReceipt: DeliveryReceiptRefNumber,
	DocInvoice:         InvoiceRefNumber,
	DocPaymentRequest:  PaymentRequestRefNumber,
	DocNonRequisition:  NonRequisitionRefNumber,
}

// FormatRefNumber dispatches to the per-type formatter.
func FormatRefNumber(t DocType, id int64, series string, draft bool) string {
	if f, ok := refNumberFuncs[t]; ok {
		return f(id, series, draft)
	}
	return fmt.Sprintf("%s-%d", strings.ToUpper(string(t)), id)
}

// RefNumberPrefixes returns the per-type series prefix ("RS", "CS", ...).
// The repository uses it to render the same formatting rules in SQL.
func RefNumberPrefixes() map[DocType]string {
	return map[DocType]string{
		DocRequisition:     "RS",
		DocCanvass:         "CS",
		DocPurchaseOrder:   "PO",
		DocDeliveryReceipt: "DR",
		DocInvoice:         "SI",
		DocPaymentRequest:  "PR",
		DocNonRequisition:  "NRS",
	}
}
