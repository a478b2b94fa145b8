// Package renderer adapts the external document rendering process. Both
// implementations are bounded by a timeout and never retry internally:
// rendering is side-effect free on the record store, so the orchestrator (or
// the admin) can rerun the whole approval safely.
package renderer

import "errors"

// Fields carries the applicant values filled into the insurance form.
type Fields struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	NationalID  string `json:"nationalId"`
	Phone       string `json:"phone"`
	MobilePhone string `json:"mobilePhone"`
}

// ErrTimeout marks a rendering attempt that exceeded its deadline.
var ErrTimeout = errors.New("render timed out")
