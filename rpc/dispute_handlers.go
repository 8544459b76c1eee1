package rpc

import (
	"net/http"

	"leasex/indexer"
	"leasex/native/dispute"
)

type disputeCreateParams struct {
	PropertyID    uint64    `json:"propertyId"`
	ApplicationID uint64    `json:"applicationId"`
	Type          enumParam `json:"type"`
	Reason        string    `json:"reason"`
}

func (s *Server) handleDisputeCreate(c *call) (interface{}, error) {
	var params disputeCreateParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	kind, err := dispute.ParseDisputeType(string(params.Type))
	if err != nil {
		return nil, invalidParams("%v", err)
	}
	d, err := s.node.CreateLeaseDispute(c.caller, params.PropertyID, params.ApplicationID, kind, params.Reason)
	if err != nil {
		return nil, err
	}
	return formatDispute(d), nil
}

type disputeVoteParams struct {
	DisputeID uint64    `json:"disputeId"`
	Vote      enumParam `json:"vote"`
}

func (s *Server) handleDisputeVote(c *call) (interface{}, error) {
	var params disputeVoteParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	vote, err := dispute.ParseVote(string(params.Vote))
	if err != nil {
		return nil, invalidParams("%v", err)
	}
	if err := s.node.VoteOnLeaseDispute(c.caller, params.DisputeID, vote); err != nil {
		return nil, err
	}
	return s.disputeResult(params.DisputeID)
}

type disputeIDParams struct {
	DisputeID uint64 `json:"disputeId"`
}

func (s *Server) handleDisputeResolve(c *call) (interface{}, error) {
	var params disputeIDParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	d, err := s.node.TriggerResolveLeaseDispute(c.caller, params.DisputeID)
	if err != nil {
		return nil, err
	}
	return formatDispute(d), nil
}

func (s *Server) handleDisputeGet(c *call) (interface{}, error) {
	var params disputeIDParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	return s.disputeResult(params.DisputeID)
}

func (s *Server) disputeResult(id uint64) (interface{}, error) {
	d, err := s.node.GetDispute(id)
	if err != nil {
		return nil, err
	}
	return formatDispute(d), nil
}

func (s *Server) handleDisputeByTenant(c *call) (interface{}, error) {
	var params tenantParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	tenant, err := parseBech32Address(params.Tenant)
	if err != nil {
		return nil, invalidParams("%v", err)
	}
	out, err := s.node.GetDisputesByTenant(tenant)
	if err != nil {
		return nil, err
	}
	return formatDisputes(out), nil
}

func (s *Server) handleDisputeByLandlord(c *call) (interface{}, error) {
	var params landlordParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	landlord, err := parseBech32Address(params.Landlord)
	if err != nil {
		return nil, invalidParams("%v", err)
	}
	out, err := s.node.GetDisputesByLandlord(landlord)
	if err != nil {
		return nil, err
	}
	return formatDisputes(out), nil
}

func (s *Server) handleDisputeAll(*call) (interface{}, error) {
	out, err := s.node.GetAllDisputes()
	if err != nil {
		return nil, err
	}
	return formatDisputes(out), nil
}

func (s *Server) handleDisputeNumVoters(c *call) (interface{}, error) {
	var params disputeIDParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	count, err := s.node.GetNumVotersInDispute(params.DisputeID)
	if err != nil {
		return nil, err
	}
	return map[string]uint64{"count": count}, nil
}

type getVoteParams struct {
	DisputeID uint64 `json:"disputeId"`
	Validator string `json:"validator"`
}

func (s *Server) handleDisputeGetVote(c *call) (interface{}, error) {
	var params getVoteParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	validator, err := parseBech32Address(params.Validator)
	if err != nil {
		return nil, invalidParams("%v", err)
	}
	vote, err := s.node.GetVote(params.DisputeID, validator)
	if err != nil {
		return nil, err
	}
	return map[string]string{"vote": vote.String()}, nil
}

func (s *Server) handleEscrowDisputePool(c *call) (interface{}, error) {
	var params disputeIDParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	pool, err := s.node.DisputePool(params.DisputeID)
	if err != nil {
		return nil, err
	}
	return formatDisputePool(pool), nil
}

type eventsRecentParams struct {
	Types  []string `json:"types,omitempty"`
	Limit  int      `json:"limit,omitempty"`
	Before uint64   `json:"before,omitempty"`
}

func (s *Server) handleEventsRecent(c *call) (interface{}, error) {
	if s.eventLog == nil {
		return nil, &RPCError{Code: codeServerError, Message: "event log not configured", status: http.StatusServiceUnavailable}
	}
	var params eventsRecentParams
	if len(c.req.Params) > 0 {
		if err := decodeParams(c, &params); err != nil {
			return nil, err
		}
	}
	if params.Limit < 0 {
		return nil, invalidParams("limit must not be negative")
	}
	records, err := s.eventLog.Recent(c.r.Context(), indexer.Query{Types: params.Types, Limit: params.Limit, Before: params.Before})
	if err != nil {
		return nil, err
	}
	out := make([]eventJSON, 0, len(records))
	for _, rec := range records {
		attrs, err := rec.Attrs()
		if err != nil {
			return nil, err
		}
		out = append(out, eventJSON{Sequence: rec.Sequence, Type: rec.Type, Attributes: attrs, CreatedAt: rec.CreatedAt.Unix()})
	}
	return out, nil
}
