// sdr-wavplay plays a mono WAV file through the pipeline onto the default
// audio output device. It is the smallest useful pipeline and doubles as a
// smoke test for the queue, the WAV source and the PortAudio sink.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/sdrpipe/sdr"
	"github.com/sdrpipe/sdr/portaudio"
	"github.com/sdrpipe/sdr/wav"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		verbose = pflag.BoolP("verbose", "v", false, "log at debug level")
		help    = pflag.BoolP("help", "h", false, "show this help")
	)
	pflag.Parse()

	if *help || pflag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "USAGE: sdr-wavplay FILE.wav\n\n")
		pflag.PrintDefaults()
		return -1
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "sdr-wavplay"})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}
	sdr.SetLogger(logger)

	if err := portaudio.Init(); err != nil {
		logger.Error("can not initialise PortAudio", "err", err)
		return -1
	}
	defer portaudio.Terminate()

	queue := sdr.NewQueue()

	src, err := wav.NewSource(queue, pflag.Arg(0), 4096)
	if err != nil {
		logger.Error("can not open input", "err", err)
		return -1
	}
	defer src.Close()

	audio := portaudio.NewSink()
	defer audio.Close()
	if err := src.Connect(audio, false); err != nil {
		logger.Error("can not open audio output", "err", err)
		return -1
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		src.Stop()
		queue.Stop()
	}()

	queue.AddStart(src, src.Start)
	queue.AddStop(src, src.Stop)

	queue.Start()
	queue.Wait()
	return 0
}
