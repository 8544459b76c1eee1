package leaseproperty

import (
	"fmt"
	"math/big"
	"strings"
)

// PropertyType classifies the dwelling.
type PropertyType uint8

const (
	PropertyTypeHDB PropertyType = iota
	PropertyTypeCondo
	PropertyTypeLanded
	PropertyTypeOther
)

var propertyTypeNames = [...]string{"HDB", "Condo", "Landed", "Other"}

func (t PropertyType) String() string {
	if int(t) < len(propertyTypeNames) {
		return propertyTypeNames[t]
	}
	return fmt.Sprintf("PropertyType(%d)", uint8(t))
}

// Valid reports whether t is a known property type.
func (t PropertyType) Valid() bool { return int(t) < len(propertyTypeNames) }

// ParsePropertyType accepts either the type name (case-insensitive) or its
// numeric index.
func ParsePropertyType(s string) (PropertyType, error) {
	trimmed := strings.TrimSpace(s)
	for i, name := range propertyTypeNames {
		if strings.EqualFold(trimmed, name) || trimmed == fmt.Sprint(i) {
			return PropertyType(i), nil
		}
	}
	return 0, fmt.Errorf("leaseproperty: unknown property type %q", s)
}

// MarshalText renders the type by name.
func (t PropertyType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("leaseproperty: invalid property type %d", t)
	}
	return []byte(t.String()), nil
}

// UnmarshalText parses a type name or index.
func (t *PropertyType) UnmarshalText(b []byte) error {
	parsed, err := ParsePropertyType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Details holds the landlord-editable fields of a property.
type Details struct {
	Location      string
	PostalCode    string
	UnitNumber    string
	Type          PropertyType
	Description   string
	NumOfTenants  uint64
	LeasePrice    *big.Int
	LeaseDuration uint64
}

// Validate checks the details are complete.
func (d Details) Validate() error {
	switch {
	case strings.TrimSpace(d.Location) == "":
		return fmt.Errorf("%w: location required", ErrInvalidDetails)
	case strings.TrimSpace(d.PostalCode) == "":
		return fmt.Errorf("%w: postal code required", ErrInvalidDetails)
	case !d.Type.Valid():
		return fmt.Errorf("%w: unknown property type", ErrInvalidDetails)
	case d.NumOfTenants == 0:
		return fmt.Errorf("%w: at least one tenant required", ErrInvalidDetails)
	case d.LeaseDuration == 0:
		return fmt.Errorf("%w: lease duration must be at least one month", ErrInvalidDetails)
	case d.LeasePrice == nil || d.LeasePrice.Sign() <= 0:
		return fmt.Errorf("%w: lease price must be positive", ErrInvalidDetails)
	}
	return nil
}

// Property is a leasable unit owned by a landlord.
type Property struct {
	ID            uint64
	Landlord      [20]byte
	Location      string
	PostalCode    string
	UnitNumber    string
	Type          PropertyType
	Description   string
	NumOfTenants  uint64
	LeasePrice    *big.Int
	LeaseDuration uint64
	// UpdateStatus is true while the property has no active applications.
	UpdateStatus   bool
	IsListed       bool
	DepositFee     *big.Int
	ProtectionPaid *big.Int
	CreatedAt      uint64
}

// Clone returns a deep copy of the property.
func (p *Property) Clone() *Property {
	if p == nil {
		return nil
	}
	out := *p
	out.LeasePrice = cloneBigInt(p.LeasePrice)
	out.DepositFee = cloneBigInt(p.DepositFee)
	out.ProtectionPaid = cloneBigInt(p.ProtectionPaid)
	return &out
}

func (p *Property) apply(d Details) {
	p.Location = strings.TrimSpace(d.Location)
	p.PostalCode = strings.TrimSpace(d.PostalCode)
	p.UnitNumber = strings.TrimSpace(d.UnitNumber)
	p.Type = d.Type
	p.Description = d.Description
	p.NumOfTenants = d.NumOfTenants
	p.LeasePrice = cloneBigInt(d.LeasePrice)
	p.LeaseDuration = d.LeaseDuration
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
