package domain

import (
	"strconv"
	"strings"

	dErrors "clientpulse/pkg/domain-errors"
)

// ClientYear names one client's compliance year. A zero Year means the
// current year.
type ClientYear struct {
	ClientID ClientID
	Year     int
}

// String encodes the key as "<client_id>:<year>", or the bare client id
// when Year is zero.
func (k ClientYear) String() string {
	if k.Year == 0 {
		return k.ClientID.String()
	}
	return k.ClientID.String() + ":" + strconv.Itoa(k.Year)
}

// ParseClientYear parses the String form.
func ParseClientYear(s string) (ClientYear, error) {
	raw, year, found := strings.Cut(s, ":")
	cid, err := ParseClientID(raw)
	if err != nil {
		return ClientYear{}, err
	}
	if !found {
		return ClientYear{ClientID: cid}, nil
	}
	y, err := strconv.Atoi(year)
	if err != nil || y < 1 {
		return ClientYear{}, dErrors.New(dErrors.CodeValidation, "year must be a positive integer")
	}
	return ClientYear{ClientID: cid, Year: y}, nil
}

// ForYear keys every client in clientIDs to year.
func ForYear(year int, clientIDs ...ClientID) []ClientYear {
	out := make([]ClientYear, 0, len(clientIDs))
	for _, cid := range clientIDs {
		out = append(out, ClientYear{ClientID: cid, Year: year})
	}
	return out
}
