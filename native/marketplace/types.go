package marketplace

import (
	"fmt"
	"math/big"
	"strings"
)

// ApplicationStatus tracks where a lease application is in its lifecycle.
type ApplicationStatus uint8

const (
	StatusPending ApplicationStatus = iota
	StatusOngoing
	StatusMadePayment
	StatusCompleted
	StatusDispute
)

var statusNames = [...]string{"PENDING", "ONGOING", "MADE_PAYMENT", "COMPLETED", "DISPUTE"}

func (s ApplicationStatus) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("ApplicationStatus(%d)", uint8(s))
}

func (s ApplicationStatus) MarshalText() ([]byte, error) {
	if int(s) >= len(statusNames) {
		return nil, fmt.Errorf("marketplace: invalid status %d", s)
	}
	return []byte(s.String()), nil
}

func (s *ApplicationStatus) UnmarshalText(b []byte) error {
	name := strings.ToUpper(strings.TrimSpace(string(b)))
	for i, n := range statusNames {
		if n == name {
			*s = ApplicationStatus(i)
			return nil
		}
	}
	return fmt.Errorf("marketplace: unknown status %q", string(b))
}

// Occupying reports whether the application holds one of the property's
// tenant slots.
func (s ApplicationStatus) Occupying() bool { return s != StatusPending }

// Applicant is the contact information a tenant submits with an application.
type Applicant struct {
	Name        string
	Email       string
	Phone       string
	Description string
}

// Application is a tenant's lease on one property.
type Application struct {
	PropertyID  uint64
	ID          uint64
	Tenant      [20]byte
	Landlord    [20]byte
	TenantName  string
	TenantEmail string
	TenantPhone string
	Description string
	MonthsPaid  uint64
	Status      ApplicationStatus
	// Deposit is the deposit fee in force when the tenant applied.
	Deposit *big.Int
	// PaymentIDs are escrow hold ids. The first entry is the deposit.
	PaymentIDs []uint64
	CreatedAt  uint64
}

// Clone returns a deep copy of the application.
func (a *Application) Clone() *Application {
	if a == nil {
		return nil
	}
	out := *a
	out.Deposit = cloneBigInt(a.Deposit)
	out.PaymentIDs = append([]uint64(nil), a.PaymentIDs...)
	return &out
}

func (a *Application) pendingHold() (uint64, bool) {
	if len(a.PaymentIDs) == 0 {
		return 0, false
	}
	return a.PaymentIDs[len(a.PaymentIDs)-1], true
}

// ApplicationKey addresses an application.
type ApplicationKey struct {
	PropertyID    uint64
	ApplicationID uint64
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
