package rpc

import (
	leaseerrors "leasex/core/errors"
	"leasex/native/leaseproperty"
	"leasex/native/marketplace"
)

type amountParams struct {
	Amount string `json:"amount"`
}

type addressParams struct {
	Address string `json:"address"`
}

type balanceResult struct {
	Address string `json:"address"`
	XToken  string `json:"xtoken"`
	Wei     string `json:"wei"`
}

func (s *Server) handleXTokenBuy(c *call) (interface{}, error) {
	var params amountParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	wei, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		return nil, invalidParams("%v", err)
	}
	tokens, err := s.node.BuyXToken(c.caller, wei)
	if err != nil {
		return nil, err
	}
	return map[string]string{"tokens": tokens.String()}, nil
}

func (s *Server) handleXTokenConvert(c *call) (interface{}, error) {
	var params amountParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	tokens, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		return nil, invalidParams("%v", err)
	}
	wei, err := s.node.ConvertXToken(c.caller, tokens)
	if err != nil {
		return nil, err
	}
	return map[string]string{"wei": wei.String()}, nil
}

func (s *Server) handleXTokenBalance(c *call) (interface{}, error) {
	var params addressParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	addr, err := parseBech32Address(params.Address)
	if err != nil {
		return nil, invalidParams("%v", err)
	}
	tokens, wei, err := s.node.Balances(addr)
	if err != nil {
		return nil, err
	}
	return balanceResult{Address: formatAddress(addr), XToken: formatAmount(tokens), Wei: formatAmount(wei)}, nil
}

type feesResult struct {
	ProtectionFee string   `json:"protectionFee"`
	VoterReward   string   `json:"voterReward"`
	VotePrice     string   `json:"votePrice"`
	WeiPerToken   string   `json:"weiPerToken"`
	MinimumVotes  uint64   `json:"minimumVotes"`
	VotingPeriod  uint64   `json:"votingPeriod"`
	Resolver      string   `json:"resolver,omitempty"`
	Validators    []string `json:"validators"`
}

func (s *Server) handleEscrowFees(*call) (interface{}, error) {
	fees := s.node.EscrowFees()
	params := s.node.DisputeParams()
	out := feesResult{
		ProtectionFee: formatAmount(fees.ProtectionFee),
		VoterReward:   formatAmount(fees.VoterReward),
		VotePrice:     formatAmount(fees.VotePrice),
		WeiPerToken:   formatAmount(s.node.WeiPerToken()),
		MinimumVotes:  params.MinimumVotes,
		VotingPeriod:  params.VotingPeriod,
		Validators:    make([]string, 0, len(params.Validators)),
	}
	if params.Resolver != ([20]byte{}) {
		out.Resolver = formatAddress(params.Resolver)
	}
	for _, v := range params.Validators {
		out.Validators = append(out.Validators, formatAddress(v))
	}
	return out, nil
}

type propertyIDParams struct {
	PropertyID uint64 `json:"propertyId"`
}

func (s *Server) handleEscrowProtectionBalance(c *call) (interface{}, error) {
	var params propertyIDParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	amount, err := s.node.ProtectionBalance(params.PropertyID)
	if err != nil {
		return nil, err
	}
	return map[string]string{"balance": amount.String()}, nil
}

type propertyDetailsParams struct {
	PropertyID    uint64    `json:"propertyId,omitempty"`
	Location      string    `json:"location"`
	PostalCode    string    `json:"postalCode"`
	UnitNumber    string    `json:"unitNumber,omitempty"`
	Type          enumParam `json:"type"`
	Description   string    `json:"description,omitempty"`
	NumOfTenants  uint64    `json:"numOfTenants"`
	LeasePrice    string    `json:"leasePrice"`
	LeaseDuration uint64    `json:"leaseDuration"`
}

func (p propertyDetailsParams) details() (leaseproperty.Details, error) {
	kind, err := leaseproperty.ParsePropertyType(string(p.Type))
	if err != nil {
		return leaseproperty.Details{}, invalidParams("%v", err)
	}
	price, err := parsePositiveBigInt(p.LeasePrice)
	if err != nil {
		return leaseproperty.Details{}, invalidParams("leasePrice: %v", err)
	}
	return leaseproperty.Details{
		Location:      p.Location,
		PostalCode:    p.PostalCode,
		UnitNumber:    p.UnitNumber,
		Type:          kind,
		Description:   p.Description,
		NumOfTenants:  p.NumOfTenants,
		LeasePrice:    price,
		LeaseDuration: p.LeaseDuration,
	}, nil
}

func (s *Server) handlePropertyAdd(c *call) (interface{}, error) {
	var params propertyDetailsParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	details, err := params.details()
	if err != nil {
		return nil, err
	}
	p, err := s.node.AddLeaseProperty(c.caller, details)
	if err != nil {
		return nil, err
	}
	return formatProperty(p), nil
}

func (s *Server) handlePropertyUpdate(c *call) (interface{}, error) {
	var params propertyDetailsParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	details, err := params.details()
	if err != nil {
		return nil, err
	}
	p, err := s.node.UpdateLeaseProperty(c.caller, params.PropertyID, details)
	if err != nil {
		return nil, err
	}
	return formatProperty(p), nil
}

func (s *Server) handlePropertyDelete(c *call) (interface{}, error) {
	var params propertyIDParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	if err := s.node.DeleteLeaseProperty(c.caller, params.PropertyID); err != nil {
		return nil, err
	}
	return map[string]bool{"deleted": true}, nil
}

func (s *Server) handlePropertyGet(c *call) (interface{}, error) {
	var params propertyIDParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	p, err := s.node.GetLeaseProperty(params.PropertyID)
	if err != nil {
		return nil, err
	}
	return formatProperty(p), nil
}

type landlordParams struct {
	Landlord string `json:"landlord"`
	Listed   bool   `json:"listed"`
}

func (s *Server) handlePropertyByLandlord(c *call) (interface{}, error) {
	var params landlordParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	landlord, err := parseBech32Address(params.Landlord)
	if err != nil {
		return nil, invalidParams("%v", err)
	}
	props, err := s.node.LeasePropertiesByLandlord(landlord, params.Listed)
	if err != nil {
		return nil, err
	}
	return formatProperties(props), nil
}

func (s *Server) handlePropertyListed(*call) (interface{}, error) {
	props, err := s.node.ListedLeaseProperties()
	if err != nil {
		return nil, err
	}
	return formatProperties(props), nil
}

type listParams struct {
	PropertyID uint64 `json:"propertyId"`
	DepositFee string `json:"depositFee"`
}

func (s *Server) handleMarketList(c *call) (interface{}, error) {
	var params listParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	deposit, err := parsePositiveBigInt(params.DepositFee)
	if err != nil {
		return nil, invalidParams("depositFee: %v", err)
	}
	if err := s.node.ListALeaseProperty(c.caller, params.PropertyID, deposit); err != nil {
		return nil, err
	}
	return s.propertyResult(params.PropertyID)
}

func (s *Server) handleMarketUnlist(c *call) (interface{}, error) {
	var params propertyIDParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	if err := s.node.UnlistALeaseProperty(c.caller, params.PropertyID); err != nil {
		return nil, err
	}
	return s.propertyResult(params.PropertyID)
}

func (s *Server) propertyResult(id uint64) (interface{}, error) {
	p, err := s.node.GetLeaseProperty(id)
	if err != nil {
		return nil, err
	}
	return formatProperty(p), nil
}

type applyParams struct {
	PropertyID  uint64 `json:"propertyId"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleMarketApply(c *call) (interface{}, error) {
	var params applyParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	app, err := s.node.ApplyLeaseProperty(c.caller, params.PropertyID, marketplace.Applicant{
		Name:        params.Name,
		Email:       params.Email,
		Phone:       params.Phone,
		Description: params.Description,
	})
	if err != nil {
		return nil, err
	}
	return formatApplication(app), nil
}

type applicationParams struct {
	PropertyID    uint64 `json:"propertyId"`
	ApplicationID uint64 `json:"applicationId"`
}

// applicationAction adapts the node's (caller, property, application)
// mutations. The result is the application after the change, or closed=true
// once the application no longer exists.
func (s *Server) applicationAction(fn func(caller [20]byte, propertyID, applicationID uint64) error) handlerFunc {
	return func(c *call) (interface{}, error) {
		var params applicationParams
		if err := decodeParams(c, &params); err != nil {
			return nil, err
		}
		if err := fn(c.caller, params.PropertyID, params.ApplicationID); err != nil {
			return nil, err
		}
		app, err := s.node.GetLeaseApplication(params.PropertyID, params.ApplicationID)
		if leaseerrors.IsNotFound(err) {
			return map[string]bool{"closed": true}, nil
		}
		if err != nil {
			return nil, err
		}
		return formatApplication(app), nil
	}
}

func (s *Server) handleMarketApplication(c *call) (interface{}, error) {
	var params applicationParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	app, err := s.node.GetLeaseApplication(params.PropertyID, params.ApplicationID)
	if err != nil {
		return nil, err
	}
	return formatApplication(app), nil
}

type tenantParams struct {
	Tenant string `json:"tenant"`
}

func (s *Server) handleMarketApplicationsByTenant(c *call) (interface{}, error) {
	var params tenantParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	tenant, err := parseBech32Address(params.Tenant)
	if err != nil {
		return nil, invalidParams("%v", err)
	}
	apps, err := s.node.GetLeaseApplicationsByTenant(tenant)
	if err != nil {
		return nil, err
	}
	return formatApplications(apps), nil
}

func (s *Server) handleMarketApplicationsByProperty(c *call) (interface{}, error) {
	var params propertyIDParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	apps, err := s.node.GetAllLeaseApplications(params.PropertyID)
	if err != nil {
		return nil, err
	}
	return formatApplications(apps), nil
}

func (s *Server) handleMarketApplicationCount(c *call) (interface{}, error) {
	var params propertyIDParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	count, err := s.node.GetLeaseApplicationCount(params.PropertyID)
	if err != nil {
		return nil, err
	}
	return map[string]uint64{"count": count}, nil
}

func (s *Server) handleMarketDepositAmount(c *call) (interface{}, error) {
	var params propertyIDParams
	if err := decodeParams(c, &params); err != nil {
		return nil, err
	}
	amount, err := s.node.GetDepositAmount(params.PropertyID)
	if err != nil {
		return nil, err
	}
	return map[string]string{"depositFee": amount.String()}, nil
}
