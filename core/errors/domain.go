// Package errors classifies errors raised by the LeaseX engines.
package errors

import (
	stderrors "errors"

	"leasex/native/dispute"
	"leasex/native/escrow"
	"leasex/native/leaseproperty"
	"leasex/native/marketplace"
	"leasex/native/xtoken"
)

var domain = []error{
	xtoken.ErrInsufficientBalance,
	xtoken.ErrInvalidAmount,
	xtoken.ErrInsufficientValue,
	xtoken.ErrAmountOverflow,

	escrow.ErrAlreadyVoted,
	escrow.ErrPoolExists,
	escrow.ErrPoolNotFound,
	escrow.ErrPoolEmpty,
	escrow.ErrPoolSettled,
	escrow.ErrPoolOverdrawn,
	escrow.ErrHoldNotFound,
	escrow.ErrHoldReleased,

	leaseproperty.ErrNotFound,
	leaseproperty.ErrUnauthorized,
	leaseproperty.ErrPropertyLocked,
	leaseproperty.ErrInvalidDetails,

	marketplace.ErrUnauthorized,
	marketplace.ErrPropertyNotListed,
	marketplace.ErrPropertyAlreadyListed,
	marketplace.ErrPropertyNotVacant,
	marketplace.ErrPropertyFull,
	marketplace.ErrDuplicateApplication,
	marketplace.ErrApplicationNotFound,
	marketplace.ErrInvalidStatus,
	marketplace.ErrPaymentNotMade,
	marketplace.ErrApplicationNotCompleted,
	marketplace.ErrInvalidDeposit,

	dispute.ErrNotFound,
	dispute.ErrUnauthorized,
	dispute.ErrDuplicateDispute,
	dispute.ErrApplicationNotCompleted,
	dispute.ErrAlreadyVoted,
	dispute.ErrInvalidVote,
	dispute.ErrInvalidType,
	dispute.ErrDisputeClosed,
	dispute.ErrResolutionNotReady,
}

// IsDomain reports whether err is a business rule rejection rather than an
// internal failure.
func IsDomain(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range domain {
		if stderrors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err signals a missing record.
func IsNotFound(err error) bool {
	return stderrors.Is(err, leaseproperty.ErrNotFound) ||
		stderrors.Is(err, marketplace.ErrApplicationNotFound) ||
		stderrors.Is(err, dispute.ErrNotFound) ||
		stderrors.Is(err, escrow.ErrPoolNotFound) ||
		stderrors.Is(err, escrow.ErrHoldNotFound)
}
