// Package input implements a capture input: one producer goroutine that
// pulls frames from a CaptureDevice, filters and compresses them, and
// publishes them into a FrameSlot read by any number of consumers.
//
// A Source ties the pieces together:
//
//	src, err := input.New(input.Options{Config: cfg, Device: dev, Encoder: enc})
//	if err := src.Start(); err != nil { ... }
//	defer src.Stop()
//
//	sub := src.Subscribe()
//	defer sub.Close()
//	for {
//		frame, err := sub.Next(ctx)
//		if err != nil { break }
//		consume(frame.Data)
//	}
//
// Subscriptions drive the DemandTracker; with StopOnIdle set, the loop
// releases the device while nobody is subscribed and resumes when the
// first consumer arrives.
//
// Reconfiguration goes through Source.Command, which routes a
// (group, control ID, value) triple to the encoder quality, the device
// resolution list, native device controls, or generic metadata.
//
// # Locking
//
// The frame slot and the demand counter each pair a mutex with a
// sync.Cond. Settings sit behind an RWMutex that the loop only holds for
// the duration of a snapshot. Commands that touch the device take the
// settings lock first and the device's own lock second; the loop never
// holds the settings lock while calling the device, so the order cannot
// invert.
package input
