package vendors

import (
	"strings"

	"github.com/ledgerline/ledgerline/internal/shared"
)

func (s *Service) validate(v Vendor) error {
	fields := map[string]string{}
	if strings.TrimSpace(v.Code) == "" {
		fields["code"] = "vendor code is required"
	}
	if strings.TrimSpace(v.Name) == "" {
		fields["name"] = "vendor name is required"
	}
	if v.CreditDays < 0 || v.CreditDays > 365 {
		fields["credit_days"] = "credit days must be between 0 and 365"
	}
	if len(fields) > 0 {
		return shared.ValidationFields("invalid vendor", fields)
	}
	return nil
}
