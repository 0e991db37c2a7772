package domain

import "fmt"

// CampaignStatus is the lifecycle state of a Campaign. The zero value is
// Open; Fulfilled and Discarded are terminal.
type CampaignStatus uint8

const (
	CampaignOpen CampaignStatus = iota
	CampaignAccepted
	CampaignFulfilled
	CampaignDiscarded
)

var campaignStatusNames = [...]string{
	CampaignOpen:      "open",
	CampaignAccepted:  "accepted",
	CampaignFulfilled: "fulfilled",
	CampaignDiscarded: "discarded",
}

func (s CampaignStatus) String() string {
	if int(s) < len(campaignStatusNames) {
		return campaignStatusNames[s]
	}
	return fmt.Sprintf("CampaignStatus(%d)", uint8(s))
}

// Valid reports whether s is one of the declared statuses.
func (s CampaignStatus) Valid() bool {
	return int(s) < len(campaignStatusNames)
}

// Terminal reports whether no further transition is possible from s.
func (s CampaignStatus) Terminal() bool {
	return s == CampaignFulfilled || s == CampaignDiscarded
}

// CanTransition reports whether the edge s -> to exists in the campaign
// state graph.
func (s CampaignStatus) CanTransition(to CampaignStatus) bool {
	switch s {
	case CampaignOpen:
		return to == CampaignAccepted || to == CampaignDiscarded
	case CampaignAccepted:
		return to == CampaignFulfilled || to == CampaignDiscarded
	default:
		return false
	}
}

func (s CampaignStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid campaign status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *CampaignStatus) UnmarshalText(b []byte) error {
	for i, name := range campaignStatusNames {
		if name == string(b) {
			*s = CampaignStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown campaign status %q", b)
}

// OpenCampaignStatus is the lifecycle state of an OpenCampaign. The zero
// value is Published; both other states are terminal.
type OpenCampaignStatus uint8

const (
	OpenCampaignPublished OpenCampaignStatus = iota
	OpenCampaignFulfilled
	OpenCampaignDiscarded
)

var openCampaignStatusNames = [...]string{
	OpenCampaignPublished: "published",
	OpenCampaignFulfilled: "fulfilled",
	OpenCampaignDiscarded: "discarded",
}

func (s OpenCampaignStatus) String() string {
	if int(s) < len(openCampaignStatusNames) {
		return openCampaignStatusNames[s]
	}
	return fmt.Sprintf("OpenCampaignStatus(%d)", uint8(s))
}

// Valid reports whether s is one of the declared statuses.
func (s OpenCampaignStatus) Valid() bool {
	return int(s) < len(openCampaignStatusNames)
}

// Terminal reports whether no further transition is possible from s.
func (s OpenCampaignStatus) Terminal() bool {
	return s != OpenCampaignPublished
}

// CanTransition reports whether the edge s -> to exists.
func (s OpenCampaignStatus) CanTransition(to OpenCampaignStatus) bool {
	return s == OpenCampaignPublished && (to == OpenCampaignFulfilled || to == OpenCampaignDiscarded)
}

func (s OpenCampaignStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid open campaign status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *OpenCampaignStatus) UnmarshalText(b []byte) error {
	for i, name := range openCampaignStatusNames {
		if name == string(b) {
			*s = OpenCampaignStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown open campaign status %q", b)
}
