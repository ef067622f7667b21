package receipt

import "fmt"

// Practice is the issuer block printed on every receipt. It comes from
// configuration, never from the request.
type Practice struct {
	SignerName  string `yaml:"signer_name"`
	SignerTaxID string `yaml:"signer_tax_id"`
	Locality    string `yaml:"locality"`
	Service     string `yaml:"service"`
	Phones      string `yaml:"phones"`
	Address     string `yaml:"address"`
}

// Validate reports the first unusable practice setting.
func (p Practice) Validate() error {
	if isBlank(p.SignerName) {
		return fmt.Errorf("practice signer_name is empty")
	}
	if _, err := FormatTaxID(p.SignerTaxID); err != nil {
		return fmt.Errorf("practice signer_tax_id: %w", err)
	}
	if isBlank(p.Locality) {
		return fmt.Errorf("practice locality is empty")
	}
	if isBlank(p.Service) {
		return fmt.Errorf("practice service is empty")
	}
	for _, v := range []string{p.SignerName, p.Locality, p.Service, p.Phones, p.Address} {
		if !Printable(v) {
			return fmt.Errorf("practice %q cannot be printed with Windows-1252 fonts", v)
		}
	}
	return nil
}
