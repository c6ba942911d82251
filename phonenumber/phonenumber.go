package phonenumber

import (
	"errors"
	"strconv"
	"strings"

	"github.com/ttacon/libphonenumber"
)

// ErrEmptyNumber is returned by Parse for an empty caller number
var ErrEmptyNumber = errors.New("raw number is empty")

// PhoneNumber is a caller identifier and what could be derived from it
type PhoneNumber struct {
	RawNumber      string
	E164Format     string
	NationalFormat string
	CountryCode    string
	IsSipUser      bool
}

// NewPhoneNumber returns the PhoneNumber struct with the given raw number
func NewPhoneNumber(number string) PhoneNumber {
	return PhoneNumber{RawNumber: strings.TrimSpace(number)}
}

// Parse fills the metadata of the number. defaultRegion (e.g. "US") is used
// for numbers without a country prefix.
func (pn *PhoneNumber) Parse(defaultRegion string) error {
	if pn.RawNumber == "" {
		return ErrEmptyNumber
	}
	if strings.HasPrefix(strings.ToLower(pn.RawNumber), "sip:") {
		pn.IsSipUser = true
		pn.E164Format = pn.RawNumber[4:]
		return nil
	}
	number, err := libphonenumber.Parse(pn.RawNumber, defaultRegion)
	if err != nil {
		return err
	}
	pn.E164Format = libphonenumber.Format(number, libphonenumber.E164)
	pn.NationalFormat = strconv.FormatUint(number.GetNationalNumber(), 10)
	pn.CountryCode = strconv.Itoa(int(number.GetCountryCode()))
	return nil
}

// Normalize returns the E.164 form of raw, or raw itself when it can not be
// parsed (extensions, anonymous callers)
func Normalize(raw, defaultRegion string) string {
	pn := NewPhoneNumber(raw)
	if err := pn.Parse(defaultRegion); err != nil {
		return pn.RawNumber
	}
	return pn.E164Format
}
