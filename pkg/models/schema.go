package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// campaignSchema validates campaign documents submitted through the API
// before they are bound into a CampaignRequest.
const campaignSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["search_strategy", "target_clients", "campaign_agenda", "max_leads", "search_depth"],
	"properties": {
		"search_strategy": {"type": "string", "minLength": 1},
		"target_clients": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "string", "minLength": 1}
		},
		"campaign_agenda": {"type": "string", "minLength": 1},
		"max_leads": {"type": "integer", "minimum": 1, "maximum": 1000},
		"search_depth": {"type": "integer", "minimum": 1, "maximum": 5}
	},
	"additionalProperties": false
}`

// ValidateCampaignDocument checks a raw campaign JSON document against the
// campaign schema. It returns an error listing every violation.
func ValidateCampaignDocument(raw []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(campaignSchema)
	documentLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate campaign document: %w", err)
	}

	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}

	return errors.New("invalid campaign document: " + strings.Join(violations, "; "))
}
