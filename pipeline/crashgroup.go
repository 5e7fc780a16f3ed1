package pipeline

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hedisam/flowgraph/monitoring"
	"github.com/hedisam/flowgraph/sysmsg"
)

// GroupPolicy decides what happens to a crash group after a
// termination wave.
type GroupPolicy int

const (
	// PolicyTemporary removes the group once all members terminated;
	// the id becomes reusable.
	PolicyTemporary GroupPolicy = iota
	// PolicyPermanent keeps the group: it accepts new members after a
	// wave and triggers again on a later abnormal exit.
	PolicyPermanent
)

func (p GroupPolicy) String() string {
	switch p {
	case PolicyTemporary:
		return "temporary"
	case PolicyPermanent:
		return "permanent"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

func (p GroupPolicy) valid() bool {
	return p == PolicyTemporary || p == PolicyPermanent
}

// ParseGroupPolicy maps a textual policy name to a GroupPolicy.
func ParseGroupPolicy(name string) (GroupPolicy, error) {
	switch name {
	case "temporary":
		return PolicyTemporary, nil
	case "permanent":
		return PolicyPermanent, nil
	default:
		return PolicyTemporary, fmt.Errorf("pipeline: unknown crash group policy %q", name)
	}
}

type groupPhase int

const (
	groupActive groupPhase = iota
	groupTriggered
)

type crashGroup struct {
	id      string
	policy  GroupPolicy
	phase   groupPhase
	members map[string]struct{}
}

// CrashGroupManager owns group membership and policy. It observes
// member exits and cascades termination of the remaining members on
// the first abnormal one. Owned by the pipeline goroutine; the
// terminate and emit callbacks run on that same goroutine.
type CrashGroupManager struct {
	groups      map[string]*crashGroup
	memberIndex map[string]string
	terminate   func(member string)
	emit        func(ev GroupDownEvent)
	logger      *zap.Logger
	metrics     *monitoring.Metrics
}

// NewCrashGroupManager wires a manager to its termination and event
// callbacks.
func NewCrashGroupManager(terminate func(member string), emit func(ev GroupDownEvent), logger *zap.Logger, metrics *monitoring.Metrics) *CrashGroupManager {
	return &CrashGroupManager{
		groups:      make(map[string]*crashGroup),
		memberIndex: make(map[string]string),
		terminate:   terminate,
		emit:        emit,
		logger:      logger,
		metrics:     metrics,
	}
}

// RegisterMember adds a child to a group, creating the group if new.
// The policy of an existing group cannot be changed, and a child
// belongs to at most one group.
func (m *CrashGroupManager) RegisterMember(groupID string, policy GroupPolicy, member string) error {
	if existing, ok := m.memberIndex[member]; ok {
		return fmt.Errorf("pipeline: child %q already belongs to crash group %q", member, existing)
	}
	g, ok := m.groups[groupID]
	if !ok {
		g = &crashGroup{
			id:      groupID,
			policy:  policy,
			phase:   groupActive,
			members: make(map[string]struct{}),
		}
		m.groups[groupID] = g
	} else if g.policy != policy {
		return fmt.Errorf("%w: group %q is %s, requested %s",
			ErrGroupPolicyMismatch, groupID, g.policy, policy)
	}
	g.members[member] = struct{}{}
	m.memberIndex[member] = groupID
	return nil
}

// GroupOf returns the group id a child belongs to.
func (m *CrashGroupManager) GroupOf(member string) (string, bool) {
	id, ok := m.memberIndex[member]
	return id, ok
}

// Members returns the current members of a group, sorted.
func (m *CrashGroupManager) Members(groupID string) []string {
	g, ok := m.groups[groupID]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(g.members))
	for name := range g.members {
		members = append(members, name)
	}
	sort.Strings(members)
	return members
}

// IsAbnormal reports whether an exit reason counts as a crash for group
// purposes.
func (m *CrashGroupManager) IsAbnormal(reason sysmsg.Reason) bool {
	return sysmsg.Abnormal(reason)
}

// OnMemberExit updates group state for one member's termination. An
// abnormal exit of a member of an active group triggers the group:
// every remaining member is terminated and one group-down event is
// emitted. Exits in an already-triggered group are absorbed.
func (m *CrashGroupManager) OnMemberExit(member string, reason sysmsg.Reason) {
	groupID, ok := m.memberIndex[member]
	if !ok {
		return
	}
	g := m.groups[groupID]
	delete(g.members, member)
	delete(m.memberIndex, member)

	switch g.phase {
	case groupActive:
		if !m.IsAbnormal(reason) {
			return
		}
		g.phase = groupTriggered
		remaining := m.Members(groupID)
		m.logger.Info("crash group triggered",
			zap.String("group", groupID),
			zap.String("member", member),
			zap.String("reason", reason.Type),
		)
		m.metrics.ObserveGroupTrigger(g.policy.String())
		m.emit(GroupDownEvent{
			ID:      uuid.NewString(),
			GroupID: groupID,
			Policy:  g.policy,
			Members: append([]string{member}, remaining...),
		})
		// no ordering guarantee among siblings; terminations are
		// idempotent
		for _, sibling := range remaining {
			m.terminate(sibling)
		}
		if len(g.members) == 0 {
			m.finishWave(g)
		}
	case groupTriggered:
		if len(g.members) == 0 {
			m.finishWave(g)
		}
	}
}

// RemoveMember detaches a child from its group without triggering,
// for explicit removal.
func (m *CrashGroupManager) RemoveMember(member string) {
	groupID, ok := m.memberIndex[member]
	if !ok {
		return
	}
	g := m.groups[groupID]
	delete(g.members, member)
	delete(m.memberIndex, member)
	if g.phase == groupTriggered && len(g.members) == 0 {
		m.finishWave(g)
	}
}

func (m *CrashGroupManager) finishWave(g *crashGroup) {
	if g.policy == PolicyTemporary {
		delete(m.groups, g.id)
		m.logger.Info("crash group removed", zap.String("group", g.id))
		return
	}
	g.phase = groupActive
	m.logger.Info("crash group wave complete", zap.String("group", g.id))
}

// groupExists reports whether a group id is currently known.
func (m *CrashGroupManager) groupExists(groupID string) bool {
	_, ok := m.groups[groupID]
	return ok
}
