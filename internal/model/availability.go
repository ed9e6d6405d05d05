package model

// Slot is a single offerable start time on a day. IsDisabled means the slot
// is taken by an existing booking; slots outside business hours are simply
// absent from the list.
type Slot struct {
	Time       string `json:"time"`
	IsDisabled bool   `json:"isDisabled"`
}

// Availability is the GET /availability response body.
type Availability struct {
	Date     string `json:"date"`
	Disabled bool   `json:"disabled"`
	Slots    []Slot `json:"slots"`
}
