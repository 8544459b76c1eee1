package core

import (
	"errors"

	"leasex/native/dispute"
	"leasex/native/escrow"
)

func (n *Node) CreateLeaseDispute(tenant [20]byte, propertyID, applicationID uint64, kind dispute.DisputeType, reason string) (*dispute.Dispute, error) {
	var d *dispute.Dispute
	err := n.mutate("dispute_create", func(e *engines) error {
		var err error
		d, err = e.disputes.CreateLeaseDispute(tenant, propertyID, applicationID, kind, reason)
		return err
	})
	return d, err
}

func (n *Node) VoteOnLeaseDispute(validator [20]byte, disputeID uint64, vote dispute.Vote) error {
	return n.mutate("dispute_vote", func(e *engines) error {
		return e.disputes.VoteOnLeaseDispute(validator, disputeID, vote)
	})
}

// TriggerResolveLeaseDispute settles the dispute and returns its final record.
func (n *Node) TriggerResolveLeaseDispute(caller [20]byte, disputeID uint64) (*dispute.Dispute, error) {
	var d *dispute.Dispute
	err := n.mutate("dispute_resolve", func(e *engines) error {
		var err error
		d, err = e.disputes.TriggerResolveLeaseDispute(caller, disputeID)
		return err
	})
	return d, err
}

func (n *Node) GetDispute(id uint64) (*dispute.Dispute, error) {
	var d *dispute.Dispute
	err := n.view(func(e *engines) error {
		var err error
		d, err = e.disputes.GetDispute(id)
		return err
	})
	return d, err
}

func (n *Node) GetDisputesByTenant(tenant [20]byte) ([]*dispute.Dispute, error) {
	var out []*dispute.Dispute
	err := n.view(func(e *engines) error {
		var err error
		out, err = e.disputes.GetDisputesByTenant(tenant)
		return err
	})
	return out, err
}

func (n *Node) GetDisputesByLandlord(landlord [20]byte) ([]*dispute.Dispute, error) {
	var out []*dispute.Dispute
	err := n.view(func(e *engines) error {
		var err error
		out, err = e.disputes.GetDisputesByLandlord(landlord)
		return err
	})
	return out, err
}

func (n *Node) GetAllDisputes() ([]*dispute.Dispute, error) {
	var out []*dispute.Dispute
	err := n.view(func(e *engines) error {
		var err error
		out, err = e.disputes.GetAllDisputes()
		return err
	})
	return out, err
}

func (n *Node) GetNumVotersInDispute(id uint64) (uint64, error) {
	var count uint64
	err := n.view(func(e *engines) error {
		var err error
		count, err = e.disputes.GetNumVotersInDispute(id)
		return err
	})
	return count, err
}

func (n *Node) GetVote(id uint64, validator [20]byte) (dispute.Vote, error) {
	var vote dispute.Vote
	err := n.view(func(e *engines) error {
		var err error
		vote, err = e.disputes.GetVote(id, validator)
		return err
	})
	return vote, err
}

// DisputePool returns the stake pool backing a dispute.
func (n *Node) DisputePool(id uint64) (*escrow.DisputePool, error) {
	var pool *escrow.DisputePool
	err := n.view(func(e *engines) error {
		var err error
		pool, err = e.escrow.DisputePool(id)
		return err
	})
	return pool, err
}

// ResolveDue resolves, as caller, every pending dispute that has reached
// quorum or its voting deadline. Each dispute settles in its own transaction;
// disputes that another caller resolved first are skipped.
func (n *Node) ResolveDue(caller [20]byte) ([]uint64, error) {
	var due []uint64
	err := n.view(func(e *engines) error {
		var err error
		due, err = e.disputes.DueForResolution()
		return err
	})
	if err != nil {
		return nil, err
	}
	resolved := make([]uint64, 0, len(due))
	for _, id := range due {
		if _, err := n.TriggerResolveLeaseDispute(caller, id); err != nil {
			if errors.Is(err, dispute.ErrDisputeClosed) {
				continue
			}
			return resolved, err
		}
		resolved = append(resolved, id)
	}
	return resolved, nil
}
