package entity

// Expense categories assigned to indexed decisions
const (
	CategoryFood    = "Food"
	CategoryTravel  = "Travel"
	CategoryCab     = "Cab"
	CategoryOther   = "Other"
	CategoryUnknown = "Unknown"
)

// Metadata keys as stored in the vector index
const (
	MetaEmployee         = "employee"
	MetaStatus           = "status"
	MetaDate             = "date"
	MetaReimbursedAmount = "reimbursed_amount"
	MetaRequestedAmount  = "requested_amount"
	MetaCategory         = "category"
)

// Defaults used when a field cannot be recovered from an analysis response
const (
	DefaultReason         = "No reason provided"
	AnalysisFailedPrefix  = "Analysis failed: "
	DefaultSearchLimit    = 5
	DefaultCollectionName = "invoice_analyses"
)
