package domain

import (
	"fmt"
	"strings"
)

// Action names a requested lifecycle transition.
type Action string

const (
	ActionCreate          Action = "create"
	ActionAssign          Action = "assign"
	ActionStartService    Action = "start_service"
	ActionCompleteService Action = "complete_service"
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionReopen          Action = "reopen"
)

// ParseAction validates a wire action name. create is not a transition on an
// existing ticket and is rejected here.
func ParseAction(raw string) (Action, bool) {
	action := Action(strings.ToLower(strings.TrimSpace(raw)))
	switch action {
	case ActionAssign, ActionStartService, ActionCompleteService, ActionApprove, ActionReject, ActionReopen:
		return action, true
	}
	return "", false
}

// ReopenPolicy decides who may reopen a closed ticket.
type ReopenPolicy string

const (
	ReopenRaiserOrAdmin ReopenPolicy = "raiser_or_admin"
	ReopenAnyActor      ReopenPolicy = "any"
)

// RejectMode decides where a rejected verification sends the ticket.
type RejectMode string

const (
	RejectRework   RejectMode = "rework"
	RejectTerminal RejectMode = "terminal"
)

// Policy carries the configurable parts of the transition table.
type Policy struct {
	Reopen ReopenPolicy
	Reject RejectMode
}

// DefaultPolicy restricts reopen to the raiser or an admin and sends rejected
// work back to the engineer.
func DefaultPolicy() Policy {
	return Policy{Reopen: ReopenRaiserOrAdmin, Reject: RejectRework}
}

type identityCheck int

const (
	identityNone identityCheck = iota
	identityAssignee
	identityReopener
)

// Rule is one row of the transition table.
type Rule struct {
	From     []TicketStatus
	To       TicketStatus
	Roles    []Role
	identity identityCheck
}

func (r Rule) allowsFrom(status TicketStatus) bool {
	for _, s := range r.From {
		if s == status {
			return true
		}
	}
	return false
}

func (r Rule) allowsRole(role Role) bool {
	if len(r.Roles) == 0 {
		return role.Valid()
	}
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// Rule returns the table row for action under this policy.
func (p Policy) Rule(action Action) (Rule, bool) {
	switch action {
	case ActionAssign:
		return Rule{
			From:  []TicketStatus{TicketStatusOpen, TicketStatusReopened},
			To:    TicketStatusAssigned,
			Roles: []Role{RoleAdmin, RoleSupervisor},
		}, true
	case ActionStartService:
		return Rule{
			From:     []TicketStatus{TicketStatusAssigned, TicketStatusReopened},
			To:       TicketStatusInProgress,
			identity: identityAssignee,
		}, true
	case ActionCompleteService:
		return Rule{
			From:     []TicketStatus{TicketStatusInProgress},
			To:       TicketStatusPendingVerification,
			identity: identityAssignee,
		}, true
	case ActionApprove:
		return Rule{
			From:  []TicketStatus{TicketStatusPendingVerification},
			To:    TicketStatusClosed,
			Roles: []Role{RoleSupervisor, RoleAdmin},
		}, true
	case ActionReject:
		to := TicketStatusInProgress
		if p.Reject == RejectTerminal {
			to = TicketStatusRejected
		}
		return Rule{
			From:  []TicketStatus{TicketStatusPendingVerification},
			To:    to,
			Roles: []Role{RoleSupervisor, RoleAdmin},
		}, true
	case ActionReopen:
		return Rule{
			From:     []TicketStatus{TicketStatusClosed},
			To:       TicketStatusReopened,
			identity: identityReopener,
		}, true
	}
	return Rule{}, false
}

// Denial classifies why a guard refused a transition.
type Denial string

const (
	DenialNone              Denial = ""
	DenialForbidden         Denial = "forbidden"
	DenialInvalidTransition Denial = "invalid_transition"
)

// GuardResult is the outcome of evaluating a transition request.
type GuardResult struct {
	Allowed bool
	Denial  Denial
	Reason  string
	To      TicketStatus
}

func forbidden(format string, args ...any) GuardResult {
	return GuardResult{Denial: DenialForbidden, Reason: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) GuardResult {
	return GuardResult{Denial: DenialInvalidTransition, Reason: fmt.Sprintf(format, args...)}
}

// CanCreate evaluates whether actor may raise a ticket.
func CanCreate(actor Actor) GuardResult {
	if actor.ID == "" || !actor.Role.Valid() {
		return forbidden("authenticated requester required")
	}
	return GuardResult{Allowed: true, To: TicketStatusOpen}
}

// Evaluate checks a transition request against the table.
// Rules are applied in order: role, current status, then identity.
func (p Policy) Evaluate(action Action, ticket *Ticket, actor Actor) GuardResult {
	rule, ok := p.Rule(action)
	if !ok {
		return invalid("unknown action %q", action)
	}
	if actor.ID == "" || !rule.allowsRole(actor.Role) {
		return forbidden("role %q may not %s", actor.Role, action)
	}
	if !rule.allowsFrom(ticket.Status) {
		return invalid("cannot %s ticket %s in status %s", action, ticket.TicketNumber, ticket.Status)
	}
	switch rule.identity {
	case identityAssignee:
		if !ticket.IsAssignedTo(actor.ID) {
			return forbidden("only the assigned engineer may %s", action)
		}
	case identityReopener:
		if p.Reopen != ReopenAnyActor && actor.ID != ticket.RaisedBy && actor.Role != RoleAdmin {
			return forbidden("only the raiser or an admin may reopen")
		}
	}
	return GuardResult{Allowed: true, To: rule.To}
}
