package cfdi

import "time"

const (
	JobPending = "pending"
	JobSent    = "sent"
	JobFailed  = "failed"

	DocumentGenerated = "generated"
)

// Job is a durable document-issuance request for one approved quote.
// Customer and Total are copied at enqueue time and never re-read from the quote.
type Job struct {
	ID        string    `json:"id"`
	QuoteID   string    `json:"quote_id"`
	Customer  string    `json:"customer"`
	Total     float64   `json:"total"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError *string   `json:"last_error"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Document is a generated tax document.
type Document struct {
	UUID      string    `json:"uuid"`
	JobID     string    `json:"job_id,omitempty"`
	QuoteID   string    `json:"quote_id,omitempty"`
	Customer  string    `json:"customer"`
	Total     float64   `json:"total"`
	XMLKey    string    `json:"-"`
	PDFKey    string    `json:"-"`
	XMLURL    string    `json:"xml_url"`
	PDFURL    string    `json:"pdf_url"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Item is one billed line.
type Item struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// Amount is quantity times unit price.
func (i Item) Amount() float64 {
	return i.Quantity * i.UnitPrice
}

// Snapshot is everything the generator needs to render one document.
type Snapshot struct {
	UUID     string
	QuoteID  string
	Customer string
	Total    float64
	Items    []Item
	IssuedAt time.Time
}
