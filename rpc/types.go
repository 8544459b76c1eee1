package rpc

import (
	"encoding/hex"

	"leasex/native/dispute"
	"leasex/native/escrow"
	"leasex/native/leaseproperty"
	"leasex/native/marketplace"
)

type propertyJSON struct {
	ID             uint64 `json:"id"`
	Landlord       string `json:"landlord"`
	Location       string `json:"location"`
	PostalCode     string `json:"postalCode"`
	UnitNumber     string `json:"unitNumber,omitempty"`
	Type           string `json:"type"`
	Description    string `json:"description,omitempty"`
	NumOfTenants   uint64 `json:"numOfTenants"`
	LeasePrice     string `json:"leasePrice"`
	LeaseDuration  uint64 `json:"leaseDuration"`
	UpdateStatus   bool   `json:"updateStatus"`
	IsListed       bool   `json:"isListed"`
	DepositFee     string `json:"depositFee"`
	ProtectionPaid string `json:"protectionPaid"`
	CreatedAt      uint64 `json:"createdAt"`
}

func formatProperty(p *leaseproperty.Property) propertyJSON {
	return propertyJSON{
		ID:             p.ID,
		Landlord:       formatAddress(p.Landlord),
		Location:       p.Location,
		PostalCode:     p.PostalCode,
		UnitNumber:     p.UnitNumber,
		Type:           p.Type.String(),
		Description:    p.Description,
		NumOfTenants:   p.NumOfTenants,
		LeasePrice:     formatAmount(p.LeasePrice),
		LeaseDuration:  p.LeaseDuration,
		UpdateStatus:   p.UpdateStatus,
		IsListed:       p.IsListed,
		DepositFee:     formatAmount(p.DepositFee),
		ProtectionPaid: formatAmount(p.ProtectionPaid),
		CreatedAt:      p.CreatedAt,
	}
}

func formatProperties(in []*leaseproperty.Property) []propertyJSON {
	out := make([]propertyJSON, 0, len(in))
	for _, p := range in {
		out = append(out, formatProperty(p))
	}
	return out
}

type applicationJSON struct {
	PropertyID  uint64   `json:"propertyId"`
	ID          uint64   `json:"applicationId"`
	Tenant      string   `json:"tenant"`
	Landlord    string   `json:"landlord"`
	TenantName  string   `json:"tenantName"`
	TenantEmail string   `json:"tenantEmail"`
	TenantPhone string   `json:"tenantPhone,omitempty"`
	Description string   `json:"description,omitempty"`
	MonthsPaid  uint64   `json:"monthsPaid"`
	Status      string   `json:"status"`
	Deposit     string   `json:"deposit"`
	PaymentIDs  []uint64 `json:"paymentIds"`
	CreatedAt   uint64   `json:"createdAt"`
}

func formatApplication(a *marketplace.Application) applicationJSON {
	ids := a.PaymentIDs
	if ids == nil {
		ids = []uint64{}
	}
	return applicationJSON{
		PropertyID:  a.PropertyID,
		ID:          a.ID,
		Tenant:      formatAddress(a.Tenant),
		Landlord:    formatAddress(a.Landlord),
		TenantName:  a.TenantName,
		TenantEmail: a.TenantEmail,
		TenantPhone: a.TenantPhone,
		Description: a.Description,
		MonthsPaid:  a.MonthsPaid,
		Status:      a.Status.String(),
		Deposit:     formatAmount(a.Deposit),
		PaymentIDs:  ids,
		CreatedAt:   a.CreatedAt,
	}
}

func formatApplications(in []*marketplace.Application) []applicationJSON {
	out := make([]applicationJSON, 0, len(in))
	for _, a := range in {
		out = append(out, formatApplication(a))
	}
	return out
}

type ballotJSON struct {
	Validator string `json:"validator"`
	Vote      string `json:"vote"`
}

type disputeJSON struct {
	ID            uint64       `json:"id"`
	PropertyID    uint64       `json:"propertyId"`
	ApplicationID uint64       `json:"applicationId"`
	Tenant        string       `json:"tenant"`
	Landlord      string       `json:"landlord"`
	Type          string       `json:"type"`
	Reason        string       `json:"reason"`
	ReasonHash    string       `json:"reasonHash"`
	Status        string       `json:"status"`
	StartTime     uint64       `json:"startTime"`
	EndTime       uint64       `json:"endTime"`
	ResolvedAt    uint64       `json:"resolvedAt,omitempty"`
	ApproveVotes  uint64       `json:"approveVotes"`
	RejectVotes   uint64       `json:"rejectVotes"`
	Ballots       []ballotJSON `json:"ballots"`
}

func formatDispute(d *dispute.Dispute) disputeJSON {
	ballots := make([]ballotJSON, 0, len(d.Ballots))
	for _, b := range d.Ballots {
		ballots = append(ballots, ballotJSON{Validator: formatAddress(b.Validator), Vote: b.Vote.String()})
	}
	return disputeJSON{
		ID:            d.ID,
		PropertyID:    d.PropertyID,
		ApplicationID: d.ApplicationID,
		Tenant:        formatAddress(d.Tenant),
		Landlord:      formatAddress(d.Landlord),
		Type:          d.Type.String(),
		Reason:        d.Reason,
		ReasonHash:    "0x" + hex.EncodeToString(d.ReasonHash[:]),
		Status:        d.Status.String(),
		StartTime:     d.StartTime,
		EndTime:       d.EndTime,
		ResolvedAt:    d.ResolvedAt,
		ApproveVotes:  d.ApproveVotes,
		RejectVotes:   d.RejectVotes,
		Ballots:       ballots,
	}
}

func formatDisputes(in []*dispute.Dispute) []disputeJSON {
	out := make([]disputeJSON, 0, len(in))
	for _, d := range in {
		out = append(out, formatDispute(d))
	}
	return out
}

type disputePoolJSON struct {
	DisputeID uint64   `json:"disputeId"`
	Tenant    string   `json:"tenant"`
	Stakers   []string `json:"stakers"`
	Balance   string   `json:"balance"`
	Retained  string   `json:"retained"`
	Settled   bool     `json:"settled"`
}

func formatDisputePool(p *escrow.DisputePool) disputePoolJSON {
	stakers := make([]string, 0, len(p.Stakers))
	for _, s := range p.Stakers {
		stakers = append(stakers, formatAddress(s))
	}
	return disputePoolJSON{
		DisputeID: p.DisputeID,
		Tenant:    formatAddress(p.Tenant),
		Stakers:   stakers,
		Balance:   formatAmount(p.Balance),
		Retained:  formatAmount(p.Retained),
		Settled:   p.Settled,
	}
}

type eventJSON struct {
	Sequence   uint64            `json:"sequence,omitempty"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  int64             `json:"createdAt,omitempty"`
}
