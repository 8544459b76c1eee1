package dispute

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"lukechampine.com/blake3"

	"leasex/core/events"
	"leasex/core/types"
	"leasex/crypto"
	"leasex/native/escrow"
	"leasex/native/leaseproperty"
	"leasex/native/marketplace"
)

const (
	EventTypeDisputeCreated  = "LeaseDisputeCreated"
	EventTypeVoteCast        = "VoteOnLeaseDispute"
	EventTypeDisputeResolved = "LeaseDisputeResolved"
)

var (
	ErrNotFound                = errors.New("dispute: lease dispute not found")
	ErrUnauthorized            = errors.New("dispute: caller is not permitted to perform this action")
	ErrDuplicateDispute        = errors.New("dispute: Tenant has already made a dispute for this lease property")
	ErrApplicationNotCompleted = errors.New("dispute: Lease application is not completed")
	ErrAlreadyVoted            = errors.New("dispute: Voter has already voted")
	ErrInvalidVote             = errors.New("dispute: vote must be APPROVE or REJECT")
	ErrInvalidType             = errors.New("dispute: unknown dispute type")
	ErrDisputeClosed           = errors.New("dispute: lease dispute is already resolved")
	ErrResolutionNotReady      = errors.New("dispute: lease dispute cannot be resolved yet")

	errNilState = errors.New("dispute: state not configured")
)

type disputeState interface {
	DisputeNextID() (uint64, error)
	DisputePut(d *Dispute) error
	DisputeGet(id uint64) (*Dispute, bool, error)
	DisputeIDs() ([]uint64, error)
	DisputeIDsByTenant(tenant [20]byte) ([]uint64, error)
	DisputeIDsByLandlord(landlord [20]byte) ([]uint64, error)
	DisputeIDForTenantProperty(tenant [20]byte, propertyID uint64) (uint64, bool, error)
}

type applications interface {
	GetLeaseApplication(propertyID, applicationID uint64) (*marketplace.Application, error)
	MarkDisputed(propertyID, applicationID uint64) error
	ClearDispute(propertyID, applicationID uint64) error
}

type properties interface {
	GetLeaseProperty(id uint64) (*leaseproperty.Property, error)
}

type custody interface {
	ProtectionFee() *big.Int
	VoterReward() *big.Int
	VotePrice() *big.Int
	StakeDisputeVoterReward(tenant [20]byte, disputeID uint64) error
	StakeVote(validator [20]byte, disputeID uint64) error
	SettleDispute(disputeID uint64, payouts []escrow.Payout) (*escrow.Settlement, error)
	PayTenantReward(propertyID uint64, tenant [20]byte, amount *big.Int) (*big.Int, error)
}

type disputeEvent struct {
	evt *types.Event
}

func (e disputeEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e disputeEvent) Event() *types.Event { return e.evt }

// Engine files, votes on and resolves lease disputes.
type Engine struct {
	state        disputeState
	applications applications
	properties   properties
	custody      custody
	emitter      events.Emitter
	nowFn        func() time.Time
	params       Params
	validators   map[[20]byte]struct{}
}

// NewEngine returns an engine with DefaultParams.
func NewEngine() *Engine {
	e := &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   time.Now,
	}
	e.SetParams(DefaultParams())
	return e
}

func (e *Engine) SetState(state disputeState) { e.state = state }
func (e *Engine) SetApplications(a applications) { e.applications = a }
func (e *Engine) SetProperties(p properties) { e.properties = p }
func (e *Engine) SetCustody(c custody) { e.custody = c }

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the clock. Nil restores time.Now.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = time.Now
		return
	}
	e.nowFn = now
}

// SetParams replaces the voting parameters. An empty validator list lets any
// account other than the two parties vote.
func (e *Engine) SetParams(p Params) {
	e.params = p
	e.params.Validators = append([][20]byte(nil), p.Validators...)
	e.validators = make(map[[20]byte]struct{}, len(p.Validators))
	for _, v := range p.Validators {
		e.validators[v] = struct{}{}
	}
}

// Params returns the voting parameters.
func (e *Engine) Params() Params {
	p := e.params
	p.Validators = append([][20]byte(nil), e.params.Validators...)
	return p
}

func (e *Engine) emit(evt *types.Event) {
	if e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(disputeEvent{evt: evt})
}

func (e *Engine) now() uint64 { return uint64(e.nowFn().Unix()) }

func (e *Engine) ready() error {
	if e.state == nil || e.applications == nil || e.properties == nil || e.custody == nil {
		return errNilState
	}
	return nil
}

// CreateLeaseDispute stakes the tenant's voter reward and opens a dispute on a
// completed lease.
func (e *Engine) CreateLeaseDispute(tenant [20]byte, propertyID, applicationID uint64, kind DisputeType, reason string) (*Dispute, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, ErrInvalidType
	}
	app, err := e.applications.GetLeaseApplication(propertyID, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Tenant != tenant {
		return nil, ErrUnauthorized
	}
	if _, exists, err := e.state.DisputeIDForTenantProperty(tenant, propertyID); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrDuplicateDispute
	}
	if app.Status != marketplace.StatusCompleted {
		return nil, ErrApplicationNotCompleted
	}
	id, err := e.state.DisputeNextID()
	if err != nil {
		return nil, err
	}
	if err := e.custody.StakeDisputeVoterReward(tenant, id); err != nil {
		return nil, err
	}
	if err := e.applications.MarkDisputed(propertyID, applicationID); err != nil {
		return nil, err
	}
	start := e.now()
	d := &Dispute{
		ID:            id,
		PropertyID:    propertyID,
		ApplicationID: applicationID,
		Tenant:        tenant,
		Landlord:      app.Landlord,
		Type:          kind,
		Reason:        reason,
		ReasonHash:    blake3.Sum256([]byte(reason)),
		Status:        StatusPending,
		StartTime:     start,
		EndTime:       start + e.params.VotingPeriod,
	}
	if err := e.state.DisputePut(d); err != nil {
		return nil, err
	}
	e.emit(newCreatedEvent(d))
	return d.Clone(), nil
}

func (e *Engine) mayVote(d *Dispute, validator [20]byte) bool {
	if validator == d.Tenant || validator == d.Landlord {
		return false
	}
	if len(e.validators) == 0 {
		return true
	}
	_, ok := e.validators[validator]
	return ok
}

// VoteOnLeaseDispute stakes the vote price and records the validator's ballot.
func (e *Engine) VoteOnLeaseDispute(validator [20]byte, disputeID uint64, vote Vote) error {
	if err := e.ready(); err != nil {
		return err
	}
	if vote != VoteApprove && vote != VoteReject {
		return ErrInvalidVote
	}
	d, err := e.load(disputeID)
	if err != nil {
		return err
	}
	if d.Status != StatusPending {
		return ErrDisputeClosed
	}
	if !e.mayVote(d, validator) {
		return ErrUnauthorized
	}
	if d.VoteOf(validator) != VoteVoid {
		return ErrAlreadyVoted
	}
	if err := e.custody.StakeVote(validator, disputeID); err != nil {
		if errors.Is(err, escrow.ErrAlreadyVoted) {
			return ErrAlreadyVoted
		}
		return err
	}
	d.Ballots = append(d.Ballots, Ballot{Validator: validator, Vote: vote})
	if vote == VoteApprove {
		d.ApproveVotes++
	} else {
		d.RejectVotes++
	}
	if err := e.state.DisputePut(d); err != nil {
		return err
	}
	e.emit(newVoteEvent(d, validator, vote))
	return nil
}

func (e *Engine) resolvable(d *Dispute, caller [20]byte) bool {
	var zero [20]byte
	if e.params.Resolver != zero && caller == e.params.Resolver {
		return true
	}
	if e.params.MinimumVotes > 0 && d.NumVoters() >= e.params.MinimumVotes {
		return true
	}
	return e.params.VotingPeriod > 0 && e.now() >= d.EndTime
}

// TriggerResolveLeaseDispute tallies the dispute, settles the stake pool and
// pays any tenant reward. The application returns to COMPLETED.
func (e *Engine) TriggerResolveLeaseDispute(caller [20]byte, disputeID uint64) (*Dispute, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	d, err := e.load(disputeID)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusPending {
		return nil, ErrDisputeClosed
	}
	if !e.resolvable(d, caller) {
		return nil, ErrResolutionNotReady
	}
	p, err := e.properties.GetLeaseProperty(d.PropertyID)
	if err != nil {
		return nil, err
	}
	fees := Fees{
		ProtectionFee: e.custody.ProtectionFee(),
		VoterReward:   e.custody.VoterReward(),
		VotePrice:     e.custody.VotePrice(),
	}
	outcome := Tally(d, fees, p.NumOfTenants)
	settlement, err := e.custody.SettleDispute(disputeID, outcome.Payouts)
	if err != nil {
		return nil, fmt.Errorf("dispute: settle pool: %w", err)
	}
	reward := big.NewInt(0)
	if outcome.TenantReward.Sign() > 0 {
		reward, err = e.custody.PayTenantReward(d.PropertyID, d.Tenant, outcome.TenantReward)
		if err != nil {
			return nil, fmt.Errorf("dispute: pay tenant reward: %w", err)
		}
	}
	if err := e.applications.ClearDispute(d.PropertyID, d.ApplicationID); err != nil {
		return nil, err
	}
	d.Status = outcome.Status
	d.ResolvedAt = e.now()
	if err := e.state.DisputePut(d); err != nil {
		return nil, err
	}
	e.emit(newResolvedEvent(d, settlement, reward))
	return d.Clone(), nil
}

func (e *Engine) load(id uint64) (*Dispute, error) {
	if id == 0 {
		return nil, ErrNotFound
	}
	d, ok, err := e.state.DisputeGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

// GetDispute returns a copy of the dispute.
func (e *Engine) GetDispute(id uint64) (*Dispute, error) {
	if e.state == nil {
		return nil, errNilState
	}
	d, err := e.load(id)
	if err != nil {
		return nil, err
	}
	return d.Clone(), nil
}

// GetNumVotersInDispute returns the number of ballots cast.
func (e *Engine) GetNumVotersInDispute(id uint64) (uint64, error) {
	d, err := e.GetDispute(id)
	if err != nil {
		return 0, err
	}
	return d.NumVoters(), nil
}

// GetVote returns the validator's ballot on the dispute.
func (e *Engine) GetVote(id uint64, validator [20]byte) (Vote, error) {
	d, err := e.GetDispute(id)
	if err != nil {
		return VoteVoid, err
	}
	return d.VoteOf(validator), nil
}

func (e *Engine) GetDisputesByTenant(tenant [20]byte) ([]*Dispute, error) {
	if e.state == nil {
		return nil, errNilState
	}
	ids, err := e.state.DisputeIDsByTenant(tenant)
	if err != nil {
		return nil, err
	}
	return e.collect(ids)
}

func (e *Engine) GetDisputesByLandlord(landlord [20]byte) ([]*Dispute, error) {
	if e.state == nil {
		return nil, errNilState
	}
	ids, err := e.state.DisputeIDsByLandlord(landlord)
	if err != nil {
		return nil, err
	}
	return e.collect(ids)
}

func (e *Engine) GetAllDisputes() ([]*Dispute, error) {
	if e.state == nil {
		return nil, errNilState
	}
	ids, err := e.state.DisputeIDs()
	if err != nil {
		return nil, err
	}
	return e.collect(ids)
}

func (e *Engine) collect(ids []uint64) ([]*Dispute, error) {
	out := make([]*Dispute, 0, len(ids))
	for _, id := range ids {
		d, ok, err := e.state.DisputeGet(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

func newCreatedEvent(d *Dispute) *types.Event {
	attrs := baseAttributes(d)
	attrs["disputeType"] = d.Type.String()
	attrs["reasonHash"] = fmt.Sprintf("%x", d.ReasonHash)
	attrs["endTime"] = strconv.FormatUint(d.EndTime, 10)
	return &types.Event{Type: EventTypeDisputeCreated, Attributes: attrs}
}

func newVoteEvent(d *Dispute, validator [20]byte, vote Vote) *types.Event {
	attrs := baseAttributes(d)
	attrs["validator"] = crypto.Address(validator).String()
	attrs["vote"] = vote.String()
	attrs["approveVotes"] = strconv.FormatUint(d.ApproveVotes, 10)
	attrs["rejectVotes"] = strconv.FormatUint(d.RejectVotes, 10)
	return &types.Event{Type: EventTypeVoteCast, Attributes: attrs}
}

func newResolvedEvent(d *Dispute, s *escrow.Settlement, reward *big.Int) *types.Event {
	attrs := baseAttributes(d)
	attrs["status"] = d.Status.String()
	attrs["approveVotes"] = strconv.FormatUint(d.ApproveVotes, 10)
	attrs["rejectVotes"] = strconv.FormatUint(d.RejectVotes, 10)
	attrs["paid"] = s.Paid.String()
	attrs["retained"] = s.Retained.String()
	attrs["tenantReward"] = reward.String()
	winners := make([]string, 0, len(d.Ballots))
	for _, b := range d.Ballots {
		if (d.Status == StatusApproved && b.Vote == VoteApprove) || (d.Status == StatusRejected && b.Vote == VoteReject) {
			winners = append(winners, crypto.Address(b.Validator).String())
		}
	}
	attrs["winners"] = strings.Join(winners, ",")
	return &types.Event{Type: EventTypeDisputeResolved, Attributes: attrs}
}

func baseAttributes(d *Dispute) map[string]string {
	return map[string]string{
		"disputeId":     strconv.FormatUint(d.ID, 10),
		"propertyId":    strconv.FormatUint(d.PropertyID, 10),
		"applicationId": strconv.FormatUint(d.ApplicationID, 10),
		"tenant":        crypto.Address(d.Tenant).String(),
		"landlord":      crypto.Address(d.Landlord).String(),
	}
}

// DueForResolution returns the ids of pending disputes that any caller may
// resolve: quorum reached or voting period over.
func (e *Engine) DueForResolution() ([]uint64, error) {
	all, err := e.GetAllDisputes()
	if err != nil {
		return nil, err
	}
	var due []uint64
	for _, d := range all {
		if d.Status == StatusPending && e.resolvable(d, [20]byte{}) {
			due = append(due, d.ID)
		}
	}
	return due, nil
}
