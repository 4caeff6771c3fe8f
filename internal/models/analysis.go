package models

// Recommendation is the AI's advisory verdict. It is never authoritative;
// human reviewers decide.
type Recommendation string

const (
	RecommendApprove Recommendation = "APPROVE"
	RecommendReject  Recommendation = "REJECT"
	RecommendReview  Recommendation = "REVIEW"
)

// BillAnalysis is the snapshot produced by the AI model at submission time.
// It is stored once and never recomputed.
type BillAnalysis struct {
	IsAuthentic     *bool          `json:"is_authentic"`
	ConfidenceScore float64        `json:"confidence_score"` // 0-100
	BillNumber      string         `json:"bill_number,omitempty"`
	BillDate        string         `json:"bill_date,omitempty"` // YYYY-MM-DD
	VendorName      string         `json:"vendor_name,omitempty"`
	ExtractedAmount float64        `json:"extracted_amount,omitempty"`
	HasGST          *bool          `json:"has_gst,omitempty"`
	GSTNumber       string         `json:"gst_number,omitempty"`
	TravelMode      string         `json:"travel_mode,omitempty"`
	TravelRoute     string         `json:"travel_route,omitempty"`
	PaymentMethod   string         `json:"payment_method,omitempty"`
	RedFlags        []string       `json:"red_flags,omitempty"`
	MissingElements []string       `json:"missing_elements,omitempty"`
	Recommendation  Recommendation `json:"recommendation"`
	Reason          string         `json:"recommendation_reason,omitempty"`
	Summary         string         `json:"summary,omitempty"`
}

func (r Recommendation) IsValid() bool {
	switch r {
	case RecommendApprove, RecommendReject, RecommendReview:
		return true
	}
	return false
}
