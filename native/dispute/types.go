package dispute

import (
	"fmt"
	"math/big"
	"strings"
)

// DisputeType categorises the tenant's complaint.
type DisputeType uint8

const (
	TypeMaintenanceAndRepairs DisputeType = iota
	TypeHealthAndSafety
	TypePrivacy
	TypeDiscrimination
	TypeNoiseComplaints
	TypeLeaseTerms
	TypeOther
)

var disputeTypeNames = [...]string{
	"MAINTENANCE_AND_REPAIRS",
	"HEALTH_AND_SAFETY",
	"PRIVACY",
	"DISCRIMINATION",
	"NOISE_COMPLAINTS",
	"LEASE_TERMS",
	"OTHER",
}

func (t DisputeType) String() string { return enumName(disputeTypeNames[:], uint8(t), "DisputeType") }

func (t DisputeType) Valid() bool { return int(t) < len(disputeTypeNames) }

func (t DisputeType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("dispute: invalid dispute type %d", t)
	}
	return []byte(t.String()), nil
}

func (t *DisputeType) UnmarshalText(b []byte) error {
	v, err := parseEnum(disputeTypeNames[:], string(b), "dispute type")
	if err != nil {
		return err
	}
	*t = DisputeType(v)
	return nil
}

// ParseDisputeType accepts a name or numeric index.
func ParseDisputeType(s string) (DisputeType, error) {
	var t DisputeType
	err := t.UnmarshalText([]byte(s))
	return t, err
}

// Status is the lifecycle state of a dispute. Every status except PENDING is
// terminal.
type Status uint8

const (
	StatusPending Status = iota
	StatusApproved
	StatusRejected
	StatusDraw
)

var statusNames = [...]string{"PENDING", "APPROVED", "REJECTED", "DRAW"}

func (s Status) String() string { return enumName(statusNames[:], uint8(s), "Status") }

func (s Status) MarshalText() ([]byte, error) {
	if int(s) >= len(statusNames) {
		return nil, fmt.Errorf("dispute: invalid status %d", s)
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := parseEnum(statusNames[:], string(b), "status")
	if err != nil {
		return err
	}
	*s = Status(v)
	return nil
}

// Vote is a validator's ballot choice. VOID means no vote.
type Vote uint8

const (
	VoteVoid Vote = iota
	VoteApprove
	VoteReject
)

var voteNames = [...]string{"VOID", "APPROVE", "REJECT"}

func (v Vote) String() string { return enumName(voteNames[:], uint8(v), "Vote") }

func (v Vote) MarshalText() ([]byte, error) {
	if int(v) >= len(voteNames) {
		return nil, fmt.Errorf("dispute: invalid vote %d", v)
	}
	return []byte(v.String()), nil
}

func (v *Vote) UnmarshalText(b []byte) error {
	parsed, err := parseEnum(voteNames[:], string(b), "vote")
	if err != nil {
		return err
	}
	*v = Vote(parsed)
	return nil
}

// ParseVote accepts a name or numeric index.
func ParseVote(s string) (Vote, error) {
	var v Vote
	err := v.UnmarshalText([]byte(s))
	return v, err
}

func enumName(names []string, v uint8, kind string) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("%s(%d)", kind, v)
}

func parseEnum(names []string, s, kind string) (uint8, error) {
	trimmed := strings.TrimSpace(s)
	for i, name := range names {
		if strings.EqualFold(trimmed, name) || trimmed == fmt.Sprint(i) {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("dispute: unknown %s %q", kind, s)
}

// Ballot records one validator's vote.
type Ballot struct {
	Validator [20]byte
	Vote      Vote
}

// Dispute is a tenant's complaint about a completed lease.
type Dispute struct {
	ID            uint64
	PropertyID    uint64
	ApplicationID uint64
	Tenant        [20]byte
	Landlord      [20]byte
	Type          DisputeType
	Reason        string
	ReasonHash    [32]byte
	Status        Status
	StartTime     uint64
	EndTime       uint64
	ResolvedAt    uint64
	Ballots       []Ballot
	ApproveVotes  uint64
	RejectVotes   uint64
}

// Clone returns a deep copy of the dispute.
func (d *Dispute) Clone() *Dispute {
	if d == nil {
		return nil
	}
	out := *d
	out.Ballots = append([]Ballot(nil), d.Ballots...)
	return &out
}

// VoteOf returns the validator's ballot, or VOID when they have not voted.
func (d *Dispute) VoteOf(validator [20]byte) Vote {
	for _, b := range d.Ballots {
		if b.Validator == validator {
			return b.Vote
		}
	}
	return VoteVoid
}

// NumVoters returns the number of ballots cast.
func (d *Dispute) NumVoters() uint64 { return uint64(len(d.Ballots)) }

// Params governs voting admission and resolution.
type Params struct {
	MinimumVotes uint64
	// VotingPeriod is in seconds. Zero disables the time trigger.
	VotingPeriod uint64
	Resolver     [20]byte
	Validators   [][20]byte
}

// DefaultParams returns MinimumVotes=4 and a seven day voting period.
func DefaultParams() Params {
	return Params{MinimumVotes: 4, VotingPeriod: 7 * 24 * 60 * 60}
}

// Fees is the escrow fee schedule used to compute payouts.
type Fees struct {
	ProtectionFee *big.Int
	VoterReward   *big.Int
	VotePrice     *big.Int
}
