package refdata

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"sunquote/backend/services/quote-service/internal/models"
)

// Document is the serialisable form of every reference table.
type Document struct {
	Products          []models.Product              `json:"products" yaml:"products"`
	Offers            []models.SupplierOffer        `json:"offers" yaml:"offers"`
	InstallationItems []models.InstallationCostItem `json:"installationItems" yaml:"installationItems"`
	RebateConfigs     []models.RebateConfig         `json:"rebateConfigs" yaml:"rebateConfigs"`
	ZoneRanges        []models.PostcodeZoneRange    `json:"zoneRanges" yaml:"zoneRanges"`
	Commissions       []models.CommissionSetting    `json:"commissions" yaml:"commissions"`
}

// DecodeYAML parses a YAML reference document.
func DecodeYAML(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("refdata: decode yaml: %w", err)
	}
	return doc, nil
}

// EncodeYAML renders the document as YAML.
func EncodeYAML(doc Document) ([]byte, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("refdata: encode yaml: %w", err)
	}
	return data, nil
}
