package tool

import (
	"context"
	"encoding/json"
)

// CompanyLookupArgs declares the argument contract of the company_lookup
// tool. The KRS number is the Polish National Court Register identifier.
type CompanyLookupArgs struct {
	KRSNumber string `json:"krs_number" jsonschema:"pattern=^[0-9]{10}$,description=KRS (National Court Register) number; exactly 10 digits."`
}

// CompanyLookup resolves company information by KRS number through the
// external company-registry service.
type CompanyLookup struct {
	registry CompanyRegistry
}

// NewCompanyLookup builds the tool around a registry client.
func NewCompanyLookup(registry CompanyRegistry) *CompanyLookup {
	return &CompanyLookup{registry: registry}
}

// Name implements Tool.
func (t *CompanyLookup) Name() string {
	return "company_lookup"
}

// Description implements Tool.
func (t *CompanyLookup) Description() string {
	return "Get company information by its KRS (National Court Register) number."
}

// Args implements Tool.
func (t *CompanyLookup) Args() any {
	return CompanyLookupArgs{}
}

// Execute implements Tool. The registry client returns *Error values for
// mapped upstream failures, which the gateway forwards as structured results.
func (t *CompanyLookup) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	var parsed CompanyLookupArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return nil, NewError(ErrCodeInvalidInput, "tool arguments are not valid JSON")
	}

	payload, err := t.registry.CompanyByKRS(ctx, parsed.KRSNumber)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(payload), nil
}

var _ Tool = (*CompanyLookup)(nil)
