package hooks

import (
	"fmt"
	"sort"
	"strings"

	"github.com/evpl/xteps-sub001/pkg/failure"
)

// Order is the invocation order policy of a Registry.
type Order int

const (
	// OrderInsertion invokes hooks in registration order.
	OrderInsertion Order = iota
	// OrderInsertionReverse invokes the last registered hook first.
	OrderInsertionReverse
	// OrderPriorityAsc invokes lower priorities first, ties in registration order.
	OrderPriorityAsc
	// OrderPriorityDesc invokes higher priorities first, ties in registration order.
	OrderPriorityDesc
)

var orderNames = map[Order]string{
	OrderInsertion:        "insertion",
	OrderInsertionReverse: "insertion_reverse",
	OrderPriorityAsc:      "priority_asc",
	OrderPriorityDesc:     "priority_desc",
}

// String returns the configuration name of the order.
func (o Order) String() string {
	if name, ok := orderNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// Valid reports whether o is a known order policy.
func (o Order) Valid() bool {
	_, ok := orderNames[o]
	return ok
}

// ParseOrder parses a configuration name such as "priority_desc".
func ParseOrder(s string) (Order, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "-", "_")
	for o, n := range orderNames {
		if n == name {
			return o, nil
		}
	}
	return OrderInsertion, failure.NewArgumentError("ParseOrder", "order", fmt.Sprintf("unknown order %q", s))
}

// sortEntries orders entries in place according to o.
func (o Order) sortEntries(entries []entry) {
	switch o {
	case OrderInsertion:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].seq < entries[j].seq
		})
	case OrderInsertionReverse:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].seq > entries[j].seq
		})
	case OrderPriorityAsc:
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].priority != entries[j].priority {
				return entries[i].priority < entries[j].priority
			}
			return entries[i].seq < entries[j].seq
		})
	case OrderPriorityDesc:
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].priority != entries[j].priority {
				return entries[i].priority > entries[j].priority
			}
			return entries[i].seq < entries[j].seq
		})
	}
}
