package eventbus

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
)

// EventBus delivers domain events in-process. Publish is synchronous: it
// returns once every handler accepting the event has run.
type EventBus interface {
	Publish(event any)
	Subscribe(handler any)
	SubscribersCount() int
}

type subscriber struct {
	fn    reflect.Value
	param reflect.Type
}

type publisher struct {
	log         logrus.FieldLogger
	mu          sync.RWMutex
	subscribers []subscriber
}

func NewEventPublisher(log logrus.FieldLogger) EventBus {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &publisher{log: log}
}

// Subscribe registers a func with exactly one parameter. The handler
// receives every published event assignable to that parameter, so a
// func(any) sees all of them.
func (p *publisher) Subscribe(handler any) {
	fn := reflect.ValueOf(handler)
	if fn.Kind() != reflect.Func || fn.Type().NumIn() != 1 {
		panic(fmt.Sprintf("eventbus: handler must be a func with one parameter, got %T", handler))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, subscriber{fn: fn, param: fn.Type().In(0)})
}

func (p *publisher) SubscribersCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers)
}

// Publish runs matching handlers in subscription order. A panicking handler
// is logged and does not stop the others.
func (p *publisher) Publish(event any) {
	arg, ok := argument(event)
	if !ok {
		p.log.Warnf("eventbus: cannot publish untyped nil")
		return
	}

	p.mu.RLock()
	subs := make([]subscriber, len(p.subscribers))
	copy(subs, p.subscribers)
	p.mu.RUnlock()

	delivered := 0
	for _, s := range subs {
		if !arg.Type().AssignableTo(s.param) {
			continue
		}
		delivered++
		p.call(s, arg)
	}
	if delivered == 0 {
		p.log.WithField("event", arg.Type().String()).Debug("eventbus: no subscribers")
	}
}

func (p *publisher) call(s subscriber, arg reflect.Value) {
	defer func() {
		if r := recover(); r != nil {
			p.log.WithFields(logrus.Fields{
				"handler": s.fn.Type().String(),
				"event":   arg.Type().String(),
			}).Errorf("eventbus: handler panicked: %v", r)
		}
	}()
	s.fn.Call([]reflect.Value{arg})
}

func argument(event any) (reflect.Value, bool) {
	if event == nil {
		return reflect.Value{}, false
	}
	return reflect.ValueOf(event), true
}
