// ABOUTME: Gapless sequential playback queue
// ABOUTME: Producers append sources, a single consumer pulls one continuous stream
// Package queue plays audio sources one after the other.
//
// New returns an Input and an Output. Any number of goroutines may append
// sources to the Input. The Output is an audio.Source: pulling it plays the
// current source and, when that runs out, moves to the next appended one
// without a gap.
//
// When nothing is pending the Output either ends (keepAliveIfEmpty false)
// or plays short silence fillers (keepAliveIfEmpty true), checking the
// queue again after each filler.
//
// Example:
//
//	in, out := queue.New(false)
//	in.Append(first)
//	done := in.AppendWithSignal(second)
//
//	go output.Pump(ctx, out, sink, 1024)
//	<-done // second has finished playing
package queue
