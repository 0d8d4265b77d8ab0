// ABOUTME: Peak metering core package
// ABOUTME: Peak capture, IEC scale mapping, peak-hold rendering and refresh rate control
// Package meter implements the core of a console peak-level meter.
//
// The package is split along the path a sample takes to the screen:
//   - PeakRegister: lock-free rolling peak shared between an audio callback and a display loop
//   - IECScale / RenderScale: IEC 60268-10 deflection mapping and the labelled scale
//   - DecayRenderer: instant-rise, delayed-fall peak hold and bar composition
//   - RateController: additive increase/decrease of the display refresh rate
//
// A PeakRegister may be written from a real-time audio thread while it is read
// from the display goroutine. Everything else in this package is owned by a
// single goroutine.
//
// Example:
//
//	ch, _ := meter.NewChannels(2, meter.DefaultGlyphs)
//	// audio callback
//	ch[0].Peak.RecordBlock(samples)
//	// display loop
//	db := meter.ToDB(ch[0].Peak.TakeAndReset(), meter.Bias(0))
//	width := meter.IECScale(db, 79)
//	ch[0].Decay.Update(width, rc.DecayTicks())
//	line := ch[0].Decay.Render(width, 79)
package meter
