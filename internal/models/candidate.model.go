package models

import "slices"

// SearchCandidate is the read projection of a waiver used by suggestions,
// search and listing. Values are snapshots: nothing mutates them after the
// projection step.
type SearchCandidate struct {
	ID                 int     `json:"id"                    msgpack:"id"`
	DisplayName        string  `json:"displayName"           msgpack:"displayName"`
	FirstName          string  `json:"firstName"             msgpack:"firstName"`
	LastName           string  `json:"lastName"              msgpack:"lastName"`
	Email              string  `json:"email"                 msgpack:"email"`
	YearOfBirth        string  `json:"yearOfBirth"           msgpack:"yearOfBirth"`
	MinorNames         *string `json:"minorNames,omitempty"  msgpack:"minorNames,omitempty"`
	WaiverYear         int     `json:"waiverYear"            msgpack:"waiverYear"`
	IsCurrentYear      bool    `json:"isCurrentYear"         msgpack:"isCurrentYear"`
	SignatureTimestamp string  `json:"signatureTimestamp"    msgpack:"signatureTimestamp"`
	Score              float64 `json:"score,omitempty"       msgpack:"score,omitempty"`
}

// CloneCandidates copies the slice and the pointed-to minor names so cached
// snapshots never share memory with callers.
func CloneCandidates(candidates []SearchCandidate) []SearchCandidate {
	if candidates == nil {
		return nil
	}

	cloned := slices.Clone(candidates)
	for i := range cloned {
		if cloned[i].MinorNames != nil {
			minors := *cloned[i].MinorNames
			cloned[i].MinorNames = &minors
		}
	}
	return cloned
}
