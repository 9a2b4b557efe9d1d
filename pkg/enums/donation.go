package enums

import "fmt"

// DonationStatus tracks the admin approval workflow for donated items.
type DonationStatus string

const (
	DonationStatusPending  DonationStatus = "pending"
	DonationStatusApproved DonationStatus = "approved"
	DonationStatusRejected DonationStatus = "rejected"
)

var validDonationStatuses = []DonationStatus{
	DonationStatusPending,
	DonationStatusApproved,
	DonationStatusRejected,
}

// String implements fmt.Stringer.
func (d DonationStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DonationStatus.
func (d DonationStatus) IsValid() bool {
	for _, candidate := range validDonationStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDonationStatus converts the raw string to a DonationStatus.
func ParseDonationStatus(value string) (DonationStatus, error) {
	for _, candidate := range validDonationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid donation status %q", value)
}

// CollectionStatus records whether a donated item was physically picked up.
// It advances independently of the approval workflow.
type CollectionStatus string

const (
	CollectionStatusNotCollected CollectionStatus = "not_collected"
	CollectionStatusCollected    CollectionStatus = "collected"
)

var validCollectionStatuses = []CollectionStatus{
	CollectionStatusNotCollected,
	CollectionStatusCollected,
}

// String implements fmt.Stringer.
func (c CollectionStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CollectionStatus.
func (c CollectionStatus) IsValid() bool {
	for _, candidate := range validCollectionStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCollectionStatus converts the raw string to a CollectionStatus.
func ParseCollectionStatus(value string) (CollectionStatus, error) {
	for _, candidate := range validCollectionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid collection status %q", value)
}
