package models

import "time"

// Category is the expense type
type Category string

const (
	CategoryTravel        Category = "travel"
	CategoryFood          Category = "food"
	CategoryMedical       Category = "medical"
	CategoryAccommodation Category = "accommodation"
	CategoryCommunication Category = "communication"
	CategoryOther         Category = "other"
)

var validCategories = map[Category]bool{
	CategoryTravel:        true,
	CategoryFood:          true,
	CategoryMedical:       true,
	CategoryAccommodation: true,
	CategoryCommunication: true,
	CategoryOther:         true,
}

// IsValid returns true if the category is one of the known categories
func (c Category) IsValid() bool { return validCategories[c] }

// TravelMode is the mode of transport for travel claims
type TravelMode string

const (
	TravelBus            TravelMode = "bus"
	TravelTrain          TravelMode = "train"
	TravelCab            TravelMode = "cab"
	TravelFlightEconomy  TravelMode = "flight_economy"
	TravelFlightBusiness TravelMode = "flight_business"
)

var validTravelModes = map[TravelMode]bool{
	TravelBus:            true,
	TravelTrain:          true,
	TravelCab:            true,
	TravelFlightEconomy:  true,
	TravelFlightBusiness: true,
}

// IsValid returns true if the travel mode is one of the known modes
func (m TravelMode) IsValid() bool { return validTravelModes[m] }

// DuplicateStatus tracks the outcome of the bill duplicate check
type DuplicateStatus string

const (
	DuplicateNotChecked DuplicateStatus = "not_checked"
	DuplicateClean      DuplicateStatus = "clean"
	DuplicateSuspected  DuplicateStatus = "suspected"
)

// Expense is an expense claim submitted by an employee
type Expense struct {
	ID            int64     `json:"id"`
	ExpenseNumber string    `json:"expense_number"`
	EmployeeID    int64     `json:"employee_id"`
	Category      Category  `json:"category"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	ExpenseDate   time.Time `json:"expense_date"`
	Description   string    `json:"description"`

	// Travel-specific fields
	TravelMode TravelMode `json:"travel_mode,omitempty"`
	TravelFrom string     `json:"travel_from,omitempty"`
	TravelTo   string     `json:"travel_to,omitempty"`

	// Bill attachment
	BillFilePath string `json:"bill_file_path,omitempty"`
	BillFileName string `json:"bill_file_name,omitempty"`
	BillNumber   string `json:"bill_number,omitempty"`
	VendorName   string `json:"vendor_name,omitempty"`

	// Self-declaration (claim without a bill)
	IsSelfDeclaration bool   `json:"is_self_declaration"`
	DeclarationReason string `json:"declaration_reason,omitempty"`

	// AI analysis snapshot, produced once at submission
	AnalysisPresent bool          `json:"analysis_present"`
	Analysis        *BillAnalysis `json:"ai_analysis,omitempty"`

	// Limit validation
	IsWithinLimits   bool     `json:"is_within_limits"`
	ValidationErrors []string `json:"validation_errors,omitempty"`

	// Duplicate detection
	FileHash        string          `json:"file_hash,omitempty"`
	DuplicateStatus DuplicateStatus `json:"duplicate_check_status"`
	DuplicateOfID   *int64          `json:"duplicate_of_expense_id,omitempty"`

	// Workflow
	Status          Status `json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	RejectedBy      *int64 `json:"rejected_by,omitempty"`

	Decisions []*Decision `json:"decisions,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}
