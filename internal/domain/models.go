package domain

// Order statuses. An order is immutable once COMPLETED or CANCELLED.
const (
	OrderPlaced         = "PLACED"
	OrderProcessing     = "PROCESSING"
	OrderOutForDelivery = "OUT_FOR_DELIVERY"
	OrderCompleted      = "COMPLETED"
	OrderCancelled      = "CANCELLED"
)

// Ticket statuses. COMPLETED is reachable only through the verifier.
const (
	TicketPending    = "PENDING"
	TicketAssigned   = "ASSIGNED"
	TicketInProgress = "IN_PROGRESS"
	TicketCompleted  = "COMPLETED"
	TicketCancelled  = "CANCELLED"
)

type Product struct {
	SKU       string  `db:"sku"`
	Name      string  `db:"name"`
	UnitPrice float64 `db:"unit_price"`
	Stock     int     `db:"stock"`
	Active    bool    `db:"active"`
	CreatedAt string  `db:"created_at"`
	UpdatedAt string  `db:"updated_at"`
}

type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int    `json:"qty,omitempty"`
}

// Customer travels with each order/ticket record; this core has no
// customer accounts.
type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
}

type Order struct {
	ID            string  `db:"id"`
	CustomerName  string  `db:"customer_name"`
	CustomerEmail string  `db:"customer_email"`
	CustomerPhone string  `db:"customer_phone"`
	Address       string  `db:"address"`
	Total         float64 `db:"total"`
	PaymentMethod string  `db:"payment_method"`
	// IsPaid is derived from the payment method at creation time; it
	// records intent, not a settlement confirmation.
	IsPaid    bool   `db:"is_paid"`
	Status    string `db:"status"`
	CreatedAt string `db:"created_at"`
}

type OrderItem struct {
	OrderID string  `db:"order_id"`
	SKU     string  `db:"sku"`
	Qty     int     `db:"qty"`
	Price   float64 `db:"price"` // unit price at order time
}

type Ticket struct {
	ID            string `db:"id"`
	OrderID       string `db:"order_id"` // empty unless created by an install order
	CustomerName  string `db:"customer_name"`
	CustomerEmail string `db:"customer_email"`
	CustomerPhone string `db:"customer_phone"`
	Description   string `db:"description"`
	RequestedAt   string `db:"requested_at"`
	Status        string `db:"status"`
	TechnicianID  string `db:"technician_id"`
	// CodeHash is the bcrypt hash of the completion code. The plaintext
	// is handed to the customer once at creation and never stored.
	CodeHash       string `db:"code_hash"`
	VerifyFails    int    `db:"verify_fails"`
	LockedUntil    string `db:"locked_until"`
	RatingEligible bool   `db:"rating_eligible"`
	CompletedAt    string `db:"completed_at"`
	CreatedAt      string `db:"created_at"`
}

type Technician struct {
	ID            string  `db:"id"`
	Name          string  `db:"name"`
	Email         string  `db:"email"`
	Phone         string  `db:"phone"`
	Specialty     string  `db:"specialty"`
	Availability  string  `db:"availability"` // AVAILABLE | BUSY | OFF_DUTY
	Rating        float64 `db:"rating"`
	RatedJobs     int     `db:"rated_jobs"`
	CompletedJobs int     `db:"completed_jobs"`
}

type User struct {
	ID    string `db:"id"`
	Email string `db:"email"`
	Name  string `db:"name"`
	Hash  string `db:"password_hash"`
	Role  string `db:"role"` // ADMIN | TECHNICIAN
	// TechnicianID links a TECHNICIAN login to its directory entry.
	TechnicianID string `db:"technician_id"`
}
