package globals

import (
	"sync"
)

// Counter holds the process wide call and stream counters
type Counter struct {
	lock          sync.Mutex
	noOfCalls     int32
	reconnects    int32
	droppedEvents int32
}

var counters = new(Counter)

// InitCounter resets every counter
func InitCounter() {
	counters.lock.Lock()
	defer counters.lock.Unlock()
	counters.noOfCalls = 0
	counters.reconnects = 0
	counters.droppedEvents = 0
}

func GetNoOfCalls() int32 {
	counters.lock.Lock()
	defer counters.lock.Unlock()
	return counters.noOfCalls
}

func IncrementNoOfCalls() {
	counters.lock.Lock()
	defer counters.lock.Unlock()
	counters.noOfCalls++
}

func DecrementNoOfCalls() {
	counters.lock.Lock()
	defer counters.lock.Unlock()
	counters.noOfCalls--
}

// GetReconnects returns how often the event stream was re-established
func GetReconnects() int32 {
	counters.lock.Lock()
	defer counters.lock.Unlock()
	return counters.reconnects
}

func IncrementReconnects() {
	counters.lock.Lock()
	defer counters.lock.Unlock()
	counters.reconnects++
}

// GetDroppedEvents returns how many events were ignored as unknown or stale
func GetDroppedEvents() int32 {
	counters.lock.Lock()
	defer counters.lock.Unlock()
	return counters.droppedEvents
}

func IncrementDroppedEvents() {
	counters.lock.Lock()
	defer counters.lock.Unlock()
	counters.droppedEvents++
}
