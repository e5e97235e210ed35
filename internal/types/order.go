package types

import (
	"strings"
	"time"
)

type Status string

const (
	PendingStatus    Status = "pending"
	ProcessingStatus Status = "processing"
	CompletedStatus  Status = "completed"
	FailedStatus     Status = "failed"
	CancelledStatus  Status = "cancelled"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s Status) IsTerminal() bool {
	return s == CompletedStatus || s == FailedStatus || s == CancelledStatus
}

func (s Status) Valid() bool {
	switch s {
	case PendingStatus, ProcessingStatus, CompletedStatus, FailedStatus, CancelledStatus:
		return true
	}
	return false
}

type PaymentMethod string

const (
	OnlinePayment PaymentMethod = "online"
	CODPayment    PaymentMethod = "cod"
)

type OrderType string

const (
	TamilNaduOrder  OrderType = "tamil_nadu"
	OtherStateOrder OrderType = "other_state"
)

const (
	WebsiteCommunication   = "website"
	MobileAppCommunication = "mobile_app"
)

type Item struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	SKU       string  `json:"sku"`
}

type CustomerInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

// PendingOrder is checkout intent recorded before payment is attempted.
type PendingOrder struct {
	ID              int           `db:"id" json:"id"`
	OrderNumber     string        `db:"order_number" json:"orderNumber"`
	Items           []Item        `db:"items" json:"items"`
	Total           float64       `db:"total" json:"total"`
	ShippingCharges float64       `db:"shipping_charges" json:"shippingCharges"`
	Customer        CustomerInfo  `db:"customer_info" json:"customerInfo"`
	PaymentMethod   PaymentMethod `db:"payment_method" json:"paymentMethod"`
	OrderType       OrderType     `db:"order_type" json:"orderType"`
	Status          Status        `db:"status" json:"status"`
	RazorpayOrderID *string       `db:"razorpay_order_id" json:"razorpayOrderId,omitempty"`
	PaymentID       *string       `db:"payment_id" json:"paymentId,omitempty"`
	FailureReason   *string       `db:"failure_reason" json:"failureReason,omitempty"`
	CompletedAt     *time.Time    `db:"completed_at" json:"completedAt,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updatedAt"`
}

// PendingOrderUpdate holds the fields merged into a ledger record on a status change.
// Nil pointers leave the stored value untouched.
type PendingOrderUpdate struct {
	Status          Status
	RazorpayOrderID *string
	PaymentID       *string
	FailureReason   *string
	CompletedAt     *time.Time
}

// Order is the finalized, billable order. It is never updated after creation.
type Order struct {
	ID              int           `db:"id" json:"id"`
	OrderNum        string        `db:"ordernum" json:"ordernum"`
	InvoiceNum      string        `db:"invoicenum" json:"invoicenum"`
	Items           []Item        `db:"items" json:"items"`
	Customer        CustomerInfo  `db:"customer_info" json:"customer"`
	Subtotal        float64       `db:"subtotal" json:"subtotal"`
	ShippingCharges float64       `db:"shipping_charges" json:"shippingCharges"`
	Total           float64       `db:"total" json:"total"`
	PaymentMethod   PaymentMethod `db:"payment_method" json:"paymentMethod"`
	OrderType       OrderType     `db:"order_type" json:"orderType"`
	Communication   string        `db:"communication" json:"communication"`
	Remarks         string        `db:"remarks" json:"remarks"`
	CreatedAt       time.Time     `db:"created_at" json:"createdAt"`
}

const paymentRemarksPrefix = "Razorpay payment ID: "

// PaymentRemarks is the remarks text of an online order. The payment id is
// always followed by a space or the end of the text.
func PaymentRemarks(paymentID string, gatewayOrderID string) string {
	remarks := paymentRemarksPrefix + paymentID
	if gatewayOrderID != "" {
		remarks += " | Razorpay order ID: " + gatewayOrderID
	}
	return remarks
}

// PaymentRemarksToken is the exact text a remarks match looks for. Matching
// it followed by a space keeps pay_1 from matching pay_12.
func PaymentRemarksToken(paymentID string) string {
	return paymentRemarksPrefix + paymentID + " "
}

// HasPayment reports whether the order was finalized for paymentID.
func (o Order) HasPayment(paymentID string) bool {
	if paymentID == "" {
		return false
	}
	return strings.Contains(o.Remarks+" ", PaymentRemarksToken(paymentID))
}
