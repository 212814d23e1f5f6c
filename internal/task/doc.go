// Package task runs periodic background work. A Loop executes one cycle at a
// time, passes each typed result to a handler and sleeps a fixed interval,
// so failures are reported per cycle and never end the loop.
package task
