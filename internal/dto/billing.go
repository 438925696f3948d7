package dto

// PaymentQuoteRequest asks for the price and allocation of a payment before it is recorded.
type PaymentQuoteRequest struct {
	SchoolYearID string `json:"school_year_id" validate:"required"`
	Amount       string `json:"amount" validate:"required,numeric"`
	PaymentDate  string `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateDiscountSettingsRequest replaces the global discount settings. Empty fields clear the value.
type UpdateDiscountSettingsRequest struct {
	ScholarshipDeadline string `json:"scholarship_deadline" validate:"omitempty,datetime=2006-01-02"`
	ReductionPercentage string `json:"reduction_percentage" validate:"omitempty,numeric"`
}
