package core

import (
	"math/big"

	"leasex/native/leaseproperty"
	"leasex/native/marketplace"
)

// BuyXToken exchanges wei for XToken and returns the tokens credited.
func (n *Node) BuyXToken(addr [20]byte, wei *big.Int) (*big.Int, error) {
	var tokens *big.Int
	err := n.mutate("xtoken_buy", func(e *engines) error {
		var err error
		tokens, err = e.ledger.BuyWithETH(addr, wei)
		return err
	})
	return tokens, err
}

// ConvertXToken exchanges XToken back to wei and returns the wei credited.
func (n *Node) ConvertXToken(addr [20]byte, tokens *big.Int) (*big.Int, error) {
	var wei *big.Int
	err := n.mutate("xtoken_convert", func(e *engines) error {
		var err error
		wei, err = e.ledger.ConvertToETH(addr, tokens)
		return err
	})
	return wei, err
}

// Balances returns the XToken and wei balances of addr.
func (n *Node) Balances(addr [20]byte) (tokens, wei *big.Int, err error) {
	err = n.view(func(e *engines) error {
		if tokens, err = e.ledger.BalanceOf(addr); err != nil {
			return err
		}
		wei, err = e.ledger.WeiBalanceOf(addr)
		return err
	})
	return tokens, wei, err
}

func (n *Node) AddLeaseProperty(landlord [20]byte, d leaseproperty.Details) (*leaseproperty.Property, error) {
	var p *leaseproperty.Property
	err := n.mutate("property_add", func(e *engines) error {
		var err error
		p, err = e.properties.AddLeaseProperty(landlord, d)
		return err
	})
	return p, err
}

func (n *Node) UpdateLeaseProperty(landlord [20]byte, id uint64, d leaseproperty.Details) (*leaseproperty.Property, error) {
	var p *leaseproperty.Property
	err := n.mutate("property_update", func(e *engines) error {
		var err error
		p, err = e.properties.UpdateLeaseProperty(landlord, id, d)
		return err
	})
	return p, err
}

func (n *Node) DeleteLeaseProperty(landlord [20]byte, id uint64) error {
	return n.mutate("property_delete", func(e *engines) error {
		return e.properties.DeleteLeaseProperty(landlord, id)
	})
}

func (n *Node) GetLeaseProperty(id uint64) (*leaseproperty.Property, error) {
	var p *leaseproperty.Property
	err := n.view(func(e *engines) error {
		var err error
		p, err = e.properties.GetLeaseProperty(id)
		return err
	})
	return p, err
}

// LeasePropertiesByLandlord returns the landlord's listed or unlisted
// properties.
func (n *Node) LeasePropertiesByLandlord(landlord [20]byte, listed bool) ([]*leaseproperty.Property, error) {
	var out []*leaseproperty.Property
	err := n.view(func(e *engines) error {
		var err error
		out, err = e.properties.ListByLandlord(landlord, listed)
		return err
	})
	return out, err
}

func (n *Node) ListedLeaseProperties() ([]*leaseproperty.Property, error) {
	var out []*leaseproperty.Property
	err := n.view(func(e *engines) error {
		var err error
		out, err = e.properties.ListListed()
		return err
	})
	return out, err
}

func (n *Node) ListALeaseProperty(landlord [20]byte, propertyID uint64, depositFee *big.Int) error {
	return n.mutate("market_list", func(e *engines) error {
		return e.market.ListALeaseProperty(landlord, propertyID, depositFee)
	})
}

func (n *Node) UnlistALeaseProperty(landlord [20]byte, propertyID uint64) error {
	return n.mutate("market_unlist", func(e *engines) error {
		return e.market.UnlistALeaseProperty(landlord, propertyID)
	})
}

func (n *Node) ApplyLeaseProperty(tenant [20]byte, propertyID uint64, applicant marketplace.Applicant) (*marketplace.Application, error) {
	var app *marketplace.Application
	err := n.mutate("market_apply", func(e *engines) error {
		var err error
		app, err = e.market.ApplyLeaseProperty(tenant, propertyID, applicant)
		return err
	})
	return app, err
}

func (n *Node) AcceptLeaseApplication(landlord [20]byte, propertyID, applicationID uint64) error {
	return n.mutate("market_accept", func(e *engines) error {
		return e.market.AcceptLeaseApplication(landlord, propertyID, applicationID)
	})
}

func (n *Node) CancelOrRejectLeaseApplication(caller [20]byte, propertyID, applicationID uint64) error {
	return n.mutate("market_cancelOrReject", func(e *engines) error {
		return e.market.CancelOrRejectLeaseApplication(caller, propertyID, applicationID)
	})
}

func (n *Node) MakePayment(tenant [20]byte, propertyID, applicationID uint64) error {
	return n.mutate("market_makePayment", func(e *engines) error {
		return e.market.MakePayment(tenant, propertyID, applicationID)
	})
}

func (n *Node) AcceptPayment(landlord [20]byte, propertyID, applicationID uint64) error {
	return n.mutate("market_acceptPayment", func(e *engines) error {
		return e.market.AcceptPayment(landlord, propertyID, applicationID)
	})
}

func (n *Node) MoveOut(tenant [20]byte, propertyID, applicationID uint64) error {
	return n.mutate("market_moveOut", func(e *engines) error {
		return e.market.MoveOut(tenant, propertyID, applicationID)
	})
}

func (n *Node) GetLeaseApplication(propertyID, applicationID uint64) (*marketplace.Application, error) {
	var app *marketplace.Application
	err := n.view(func(e *engines) error {
		var err error
		app, err = e.market.GetLeaseApplication(propertyID, applicationID)
		return err
	})
	return app, err
}

func (n *Node) GetLeaseApplicationsByTenant(tenant [20]byte) ([]*marketplace.Application, error) {
	var out []*marketplace.Application
	err := n.view(func(e *engines) error {
		var err error
		out, err = e.market.GetLeaseApplicationsByTenant(tenant)
		return err
	})
	return out, err
}

func (n *Node) GetAllLeaseApplications(propertyID uint64) ([]*marketplace.Application, error) {
	var out []*marketplace.Application
	err := n.view(func(e *engines) error {
		var err error
		out, err = e.market.GetAllLeaseApplications(propertyID)
		return err
	})
	return out, err
}

func (n *Node) GetLeaseApplicationCount(propertyID uint64) (uint64, error) {
	var count uint64
	err := n.view(func(e *engines) error {
		var err error
		count, err = e.market.GetLeaseApplicationCount(propertyID)
		return err
	})
	return count, err
}

func (n *Node) GetDepositAmount(propertyID uint64) (*big.Int, error) {
	var amount *big.Int
	err := n.view(func(e *engines) error {
		var err error
		amount, err = e.market.GetDepositAmount(propertyID)
		return err
	})
	return amount, err
}

// ProtectionBalance reports the protection fee currently held for a property.
func (n *Node) ProtectionBalance(propertyID uint64) (*big.Int, error) {
	var amount *big.Int
	err := n.view(func(e *engines) error {
		var err error
		amount, err = e.escrow.ProtectionBalance(propertyID)
		return err
	})
	return amount, err
}
