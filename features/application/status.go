package application

import "fmt"

// Status is the application pipeline stage. Statuses form a total order used
// to decide whether an incoming update supersedes the stored one; Rejected
// ranks highest so a rejection overrides any prior stage, including an offer.
type Status string

const (
	StatusApplied   Status = "Applied"
	StatusOA        Status = "OA"
	StatusInterview Status = "Interview"
	StatusOffer     Status = "Offer"
	StatusRejected  Status = "Rejected"
)

var statusRank = map[Status]int{
	StatusApplied:   0,
	StatusOA:        1,
	StatusInterview: 2,
	StatusOffer:     3,
	StatusRejected:  4,
}

// Rank returns the position of the status in the lattice. Unknown statuses
// rank below Applied so they can never displace a stored record.
func (s Status) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// ParseStatus normalizes model output into a Status. The extraction prompt
// asks for "Rejection" while the record store uses "Rejected"; both spellings
// are accepted, as is "Online Assessment" for OA.
func ParseStatus(raw string) (Status, error) {
	switch raw {
	case "Applied":
		return StatusApplied, nil
	case "OA", "Online Assessment":
		return StatusOA, nil
	case "Interview":
		return StatusInterview, nil
	case "Offer":
		return StatusOffer, nil
	case "Rejected", "Rejection", "Reject":
		return StatusRejected, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrExtraction, raw)
}
