// Package sdr is a runtime for software defined radio signal processing
// pipelines. Sources produce reference counted sample buffers, nodes filter
// and transform them, sinks consume them; a central queue moves buffers
// between nodes that are not wired directly and drives idle triggered input
// sources.
//
// The sample model is integer first: streams carry one of twelve sample
// types (real and complex unsigned/signed 8 and 16 bit integers plus 32 and
// 64 bit floats), DSP kernels run on a wider super-scalar and renormalise by
// the per-type shift, keeping the hot paths free of floating point math.
//
// A minimal receive chain looks like this:
//
//	queue := sdr.NewQueue()
//	src, _ := wav.NewSource(queue, "capture.wav", 8192)
//	cast := sdr.NewAutoCast(sdr.TypeCS16)
//	baseband := sdr.NewIQBaseBandRate[int16](100e3, 12.5e3, 21, 8000)
//	demod := sdr.NewFMDemod[int16]()
//
//	src.Connect(cast, true)
//	cast.Connect(baseband, false)
//	baseband.Connect(demod, true)
//	demod.Connect(sink, false)
//
//	queue.AddStart(src, src.Start)
//	queue.Start()
//	queue.Wait()
//
// Configuration (sample type, rate, buffer geometry) flows from sources to
// sinks out of band: connecting a sink or reconfiguring a source propagates
// a Config downstream, and a node that cannot serve the announced stream
// rejects it with a ConfigError before any sample moves.
package sdr
