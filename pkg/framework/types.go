package framework

import (
	"context"
	"time"
)

// Named is implemented by things with a name for logging.
type Named interface {
	Name() string
}

// Runnable is a long running background task.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Message is posted to a Loop and consumed by controllers.
type Message interface{}

// Controller runs once per loop iteration.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc is the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(cc ControlContext) error {
	return f(cc)
}

// ControlContext is the state of the current iteration.
type ControlContext interface {
	// Context is cancelled when the loop stops.
	Context() context.Context
	// Time is when the iteration started.
	Time() time.Time
	// Iteration counts from 1.
	Iteration() uint64
	// ProcessMessages walks the messages posted before the iteration
	// started. Messages for which fn returns true are taken and not seen
	// by later controllers.
	ProcessMessages(fn func(Message) bool)
	// PostMessage queues a message for the next iteration.
	PostMessage(Message)
}

// Priority levels, controllers in lower levels run first.
const (
	PrLvSense int = iota
	PrLvControl
	PrLvActuate
	PrLvPublish

	PriorityLevels
)
