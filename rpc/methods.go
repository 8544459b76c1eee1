package rpc

// methodTable lists every JSON-RPC method. Methods marked auth act on behalf
// of the bearer token subject.
func (s *Server) methodTable() map[string]method {
	return map[string]method{
		"xtoken_buy":     {auth: true, fn: s.handleXTokenBuy},
		"xtoken_convert": {auth: true, fn: s.handleXTokenConvert},
		"xtoken_balance": {fn: s.handleXTokenBalance},

		"escrow_fees":              {fn: s.handleEscrowFees},
		"escrow_protectionBalance": {fn: s.handleEscrowProtectionBalance},
		"escrow_disputePool":       {fn: s.handleEscrowDisputePool},

		"property_add":        {auth: true, fn: s.handlePropertyAdd},
		"property_update":     {auth: true, fn: s.handlePropertyUpdate},
		"property_delete":     {auth: true, fn: s.handlePropertyDelete},
		"property_get":        {fn: s.handlePropertyGet},
		"property_byLandlord": {fn: s.handlePropertyByLandlord},
		"property_listed":     {fn: s.handlePropertyListed},

		"market_list":                   {auth: true, fn: s.handleMarketList},
		"market_unlist":                 {auth: true, fn: s.handleMarketUnlist},
		"market_apply":                  {auth: true, fn: s.handleMarketApply},
		"market_accept":                 {auth: true, fn: s.applicationAction(s.node.AcceptLeaseApplication)},
		"market_cancelOrReject":         {auth: true, fn: s.applicationAction(s.node.CancelOrRejectLeaseApplication)},
		"market_makePayment":            {auth: true, fn: s.applicationAction(s.node.MakePayment)},
		"market_acceptPayment":          {auth: true, fn: s.applicationAction(s.node.AcceptPayment)},
		"market_moveOut":                {auth: true, fn: s.applicationAction(s.node.MoveOut)},
		"market_application":            {fn: s.handleMarketApplication},
		"market_applicationsByTenant":   {fn: s.handleMarketApplicationsByTenant},
		"market_applicationsByProperty": {fn: s.handleMarketApplicationsByProperty},
		"market_applicationCount":       {fn: s.handleMarketApplicationCount},
		"market_depositAmount":          {fn: s.handleMarketDepositAmount},

		"dispute_create":     {auth: true, fn: s.handleDisputeCreate},
		"dispute_vote":       {auth: true, fn: s.handleDisputeVote},
		"dispute_resolve":    {auth: true, fn: s.handleDisputeResolve},
		"dispute_get":        {fn: s.handleDisputeGet},
		"dispute_byTenant":   {fn: s.handleDisputeByTenant},
		"dispute_byLandlord": {fn: s.handleDisputeByLandlord},
		"dispute_all":        {fn: s.handleDisputeAll},
		"dispute_numVoters":  {fn: s.handleDisputeNumVoters},
		"dispute_getVote":    {fn: s.handleDisputeGetVote},

		"events_recent": {fn: s.handleEventsRecent},
	}
}
