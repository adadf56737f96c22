package customers

import (
	"strings"

	"github.com/ledgerline/ledgerline/internal/shared"
)

func (s *Service) validate(c Customer) error {
	fields := map[string]string{}
	if strings.TrimSpace(c.Code) == "" {
		fields["code"] = "customer code is required"
	}
	if strings.TrimSpace(c.Name) == "" {
		fields["name"] = "customer name is required"
	}
	if c.CreditDays < 0 || c.CreditDays > 365 {
		fields["credit_days"] = "credit days must be between 0 and 365"
	}
	if len(fields) > 0 {
		return shared.ValidationFields("invalid customer", fields)
	}
	return nil
}
