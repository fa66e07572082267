package model

// MedicalService is one entry of the static service catalog. Entries are
// immutable for the process lifetime; prices are plain currency amounts.
type MedicalService struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
}
