package marketplace

import (
	"math/big"
	"strconv"

	"leasex/core/types"
	"leasex/crypto"
)

const (
	EventTypePropertyListed              = "LeasePropertyListed"
	EventTypePropertyUnlisted            = "LeasePropertyUnlisted"
	EventTypeApplicationSubmitted        = "LeaseApplicationSubmitted"
	EventTypeApplicationAccepted         = "LeaseApplicationAccepted"
	EventTypeApplicationCancelOrRejected = "LeaseApplicationCancelOrRejected"
	EventTypePaymentMade                 = "PaymentMade"
	EventTypePaymentAccepted             = "PaymentAccepted"
	EventTypeTenantMovedOut              = "TenantMovedOut"
)

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func newListedEvent(propertyID uint64, landlord [20]byte, depositFee *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypePropertyListed,
		Attributes: map[string]string{
			"propertyId": strconv.FormatUint(propertyID, 10),
			"landlord":   crypto.Address(landlord).String(),
			"depositFee": bigString(depositFee),
		},
	}
}

func newUnlistedEvent(propertyID uint64, landlord [20]byte, refunded *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypePropertyUnlisted,
		Attributes: map[string]string{
			"propertyId": strconv.FormatUint(propertyID, 10),
			"landlord":   crypto.Address(landlord).String(),
			"refunded":   bigString(refunded),
		},
	}
}

func newApplicationEvent(eventType string, app *Application) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"propertyId":    strconv.FormatUint(app.PropertyID, 10),
			"applicationId": strconv.FormatUint(app.ID, 10),
			"tenant":        crypto.Address(app.Tenant).String(),
			"landlord":      crypto.Address(app.Landlord).String(),
			"status":        app.Status.String(),
		},
	}
}

func newPaymentEvent(eventType string, app *Application, amount *big.Int) *types.Event {
	evt := newApplicationEvent(eventType, app)
	evt.Attributes["amount"] = bigString(amount)
	evt.Attributes["monthsPaid"] = strconv.FormatUint(app.MonthsPaid, 10)
	return evt
}
