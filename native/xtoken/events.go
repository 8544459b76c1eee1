package xtoken

import (
	"math/big"

	"leasex/core/types"
	"leasex/crypto"
)

const (
	// EventTypeGetCredit is emitted when XToken is bought with ETH.
	EventTypeGetCredit = "getCredit"
	// EventTypeRefundCredit is emitted when XToken is converted back to ETH.
	EventTypeRefundCredit = "refundCredit"
)

// NewGetCreditEvent describes a purchase of tokens for wei.
func NewGetCreditEvent(addr [20]byte, tokens, wei *big.Int) *types.Event {
	return newExchangeEvent(EventTypeGetCredit, addr, tokens, wei)
}

// NewRefundCreditEvent describes a conversion of tokens back into wei.
func NewRefundCreditEvent(addr [20]byte, tokens, wei *big.Int) *types.Event {
	return newExchangeEvent(EventTypeRefundCredit, addr, tokens, wei)
}

func newExchangeEvent(eventType string, addr [20]byte, tokens, wei *big.Int) *types.Event {
	attrs := map[string]string{
		"account": crypto.Address(addr).String(),
		"amount":  "0",
		"wei":     "0",
	}
	if tokens != nil {
		attrs["amount"] = tokens.String()
	}
	if wei != nil {
		attrs["wei"] = wei.String()
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
