package platform

import "sync/atomic"

// dispatcher holds the function that schedules callbacks on the UI thread.
var dispatcher atomic.Pointer[func(callback func())]

// RegisterDispatch sets the function used to schedule callbacks on the UI
// thread. Permission outcomes are delivered through it when set. A nil fn
// unregisters it.
func RegisterDispatch(fn func(callback func())) {
	if fn == nil {
		dispatcher.Store(nil)
		return
	}
	dispatcher.Store(&fn)
}

// Dispatch hands callback to the registered dispatch function and reports
// whether it did. It returns false when nothing is registered or callback is
// nil, leaving the caller to run it directly.
func Dispatch(callback func()) bool {
	fn := dispatcher.Load()
	if fn == nil || callback == nil {
		return false
	}
	(*fn)(callback)
	return true
}
