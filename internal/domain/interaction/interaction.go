// Package interaction tracks the selector state of the dashboard panels.
//
// Each view owns an independent (weekday, category) pair. A selector change
// updates exactly one selector of exactly one view and names that view as the
// only one to recompute.
package interaction

import (
	"errors"
	"fmt"
	"sync"

	"github.com/okian/poirisk/internal/domain/model"
	"github.com/okian/poirisk/internal/domain/types"
)

// Sentinel errors.
var (
	ErrUnknownView     = errors.New("unknown view")
	ErrUnknownSelector = errors.New("unknown selector")
)

// ViewID names a dashboard panel.
type ViewID string

// Views.
const (
	ViewHistogram ViewID = "histogram"
	ViewMap       ViewID = "map"
)

// Views returns every panel in page order.
func Views() []ViewID { return []ViewID{ViewHistogram, ViewMap} }

// ParseView validates a view name.
func ParseView(s string) (ViewID, error) {
	switch ViewID(s) {
	case ViewHistogram, ViewMap:
		return ViewID(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// Selector names one of the two controls of a view.
type Selector string

// Selectors.
const (
	SelectWeekday  Selector = "weekday"
	SelectCategory Selector = "category"
)

// Command is a single selector change.
type Command struct {
	View     ViewID   `json:"view"`
	Selector Selector `json:"selector"`
	Value    string   `json:"value"`
}

// Controller holds the selection of every view. It is safe for concurrent
// use.
type Controller struct {
	mu    sync.RWMutex
	state map[ViewID]model.Selection
}

// DefaultSelection is the initial state of both views.
func DefaultSelection() model.Selection {
	return model.Selection{Weekday: types.Monday, Category: "Grocery Stores"}
}

// NewController starts every view at initial.
func NewController(initial model.Selection) *Controller {
	c := &Controller{state: make(map[ViewID]model.Selection, len(Views()))}
	for _, v := range Views() {
		c.state[v] = initial
	}
	return c
}

// Selection returns the current selection of v.
func (c *Controller) Selection(v ViewID) (model.Selection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookup(v)
}

func (c *Controller) lookup(v ViewID) (model.Selection, error) {
	sel, ok := c.state[v]
	if !ok {
		return model.Selection{}, fmt.Errorf("%w: %q", ErrUnknownView, v)
	}
	return sel, nil
}

// Apply performs cmd and returns the view to recompute with its new
// selection. On error the state is unchanged.
func (c *Controller) Apply(cmd Command) (ViewID, model.Selection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sel, err := c.lookup(cmd.View)
	if err != nil {
		return "", model.Selection{}, err
	}

	switch cmd.Selector {
	case SelectWeekday:
		w, err := types.ParseWeekday(cmd.Value)
		if err != nil {
			return "", model.Selection{}, err
		}
		sel.Weekday = w
	case SelectCategory:
		sel.Category = cmd.Value
	default:
		return "", model.Selection{}, fmt.Errorf("%w: %q", ErrUnknownSelector, cmd.Selector)
	}

	c.state[cmd.View] = sel
	return cmd.View, sel, nil
}
