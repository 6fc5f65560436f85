package checkout

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fjod/hebec-shop/internal/domain"
)

const maxNotesLength = 500

var phonePattern = regexp.MustCompile(`^\+?[0-9]{9,11}$`)

// normalizeShipping trims every field and strips separators from the phone number.
func normalizeShipping(s domain.ShippingInfo) domain.ShippingInfo {
	phone := strings.NewReplacer(" ", "", ".", "", "-", "").Replace(strings.TrimSpace(s.Phone))
	return domain.ShippingInfo{
		RecipientName: strings.TrimSpace(s.RecipientName),
		Phone:         phone,
		Email:         strings.TrimSpace(s.Email),
		Province:      strings.TrimSpace(s.Province),
		District:      strings.TrimSpace(s.District),
		Ward:          strings.TrimSpace(s.Ward),
		AddressDetail: strings.TrimSpace(s.AddressDetail),
		Notes:         strings.TrimSpace(s.Notes),
	}
}

// ValidateShipping returns field errors for an already normalized shipping form, or nil.
func ValidateShipping(s domain.ShippingInfo) map[string]string {
	errs := map[string]string{}
	required := []struct {
		name  string
		value string
	}{
		{"recipientName", s.RecipientName},
		{"phone", s.Phone},
		{"province", s.Province},
		{"district", s.District},
		{"ward", s.Ward},
		{"addressDetail", s.AddressDetail},
	}
	for _, f := range required {
		if f.value == "" {
			errs[f.name] = "is required"
		}
	}

	if s.Phone != "" && !phonePattern.MatchString(s.Phone) {
		errs["phone"] = "must be 9 to 11 digits"
	}
	if s.Email != "" {
		if _, err := mail.ParseAddress(s.Email); err != nil {
			errs["email"] = "is not a valid email address"
		}
	}
	if utf8.RuneCountInString(s.Notes) > maxNotesLength {
		errs["notes"] = "must be at most 500 characters"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidatePayment checks the payment step. Paying from the account balance needs a signed-in customer.
func ValidatePayment(method domain.PaymentMethod, signedIn bool) map[string]string {
	switch {
	case method == "":
		return map[string]string{"paymentMethod": "is required"}
	case !method.Valid():
		return map[string]string{"paymentMethod": "is not supported"}
	case method == domain.PaymentBalance && !signedIn:
		return map[string]string{"paymentMethod": "requires signing in"}
	}
	return nil
}
