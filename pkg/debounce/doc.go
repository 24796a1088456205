// Package debounce rate-limits a stream of tagged events on its way to a
// single consumer.
//
// Each event type is classified as immediate, coalescible or pass-through.
// Immediate events are delivered synchronously, after any coalesced content
// waiting ahead of them. Coalescible events have their string payloads
// concatenated per type and are delivered once the stream goes quiet for
// Config.Interval, or at the latest Config.MaxWait after content started
// accumulating. Anything unclassified is delivered as is, right away.
//
//	d := debounce.New(sink, classifier, debounce.Config{})
//	d.Send(debounce.Event{Type: "output", Data: "Hel"})
//	d.Send(debounce.Event{Type: "output", Data: "lo"})
//	d.Send(debounce.Event{Type: "toolUse", Data: call}) // sink sees "Hello", then the tool call
//	d.ForceFlush()
package debounce
