// sdr-fm is a narrow band FM receiver. It demodulates an I/Q capture (a
// stereo WAV file) or the soundcard input and plays the audio back or
// writes it into a WAV file.
//
// Usage:
//
//	sdr-fm [options] FREQUENCY-OFFSET
//	sdr-fm -f capture.wav -a
//	sdr-fm -f capture.wav -M audio.wav 100e3
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/sdrpipe/sdr"
	"github.com/sdrpipe/sdr/portaudio"
	"github.com/sdrpipe/sdr/wav"
)

// settings is the optional receiver settings file.
type settings struct {
	Frequency   float64 `yaml:"frequency"`
	Correction  float64 `yaml:"correction"`
	FilterWidth float64 `yaml:"filter_width"`
	FilterOrder int     `yaml:"filter_order"`
	AudioRate   float64 `yaml:"audio_rate"`
}

func defaultSettings() settings {
	return settings{
		FilterWidth: 12.5e3,
		FilterOrder: 21,
		AudioRate:   8000,
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		frequency   = pflag.Float64P("frequency", "F", 0, "frequency offset of the station within the capture in Hz")
		correction  = pflag.Float64("correction", 0, "frequency correction in Hz, added to the offset")
		inFile      = pflag.StringP("file", "f", "", "read I/Q input from a WAV file instead of the soundcard")
		audioOut    = pflag.BoolP("audio", "a", false, "play the demodulated audio on the default output device")
		monitorFile = pflag.StringP("monitor", "M", "", "write the demodulated audio into a WAV file")
		configFile  = pflag.StringP("config", "c", "", "receiver settings file (YAML)")
		inputRate   = pflag.Float64("rate", 96000, "soundcard input sample rate in Hz")
		verbose     = pflag.BoolP("verbose", "v", false, "log at debug level")
		help        = pflag.BoolP("help", "h", false, "show this help")
	)
	pflag.Parse()

	if *help {
		fmt.Fprintf(os.Stderr, "USAGE: sdr-fm [options] [FREQUENCY-OFFSET]\n\n")
		pflag.PrintDefaults()
		return -1
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "sdr-fm"})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}
	sdr.SetLogger(logger)

	cfg := defaultSettings()
	if *configFile != "" {
		raw, err := os.ReadFile(*configFile)
		if err != nil {
			logger.Error("can not read settings", "file", *configFile, "err", err)
			return -1
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			logger.Error("can not parse settings", "file", *configFile, "err", err)
			return -1
		}
	}
	if *frequency != 0 {
		cfg.Frequency = *frequency
	}
	if *correction != 0 {
		cfg.Correction = *correction
	}
	// A positional frequency offset wins over flag and file.
	if pflag.NArg() >= 1 {
		f, err := strconv.ParseFloat(pflag.Arg(0), 64)
		if err != nil {
			logger.Error("invalid frequency", "arg", pflag.Arg(0), "err", err)
			return -1
		}
		cfg.Frequency = f
	}
	if !*audioOut && *monitorFile == "" {
		logger.Error("nothing to do: enable audio playback (-a) or a monitor file (-M)")
		return -1
	}

	if err := portaudio.Init(); err != nil {
		logger.Error("can not initialise PortAudio", "err", err)
		return -1
	}
	defer portaudio.Terminate()

	queue := sdr.NewQueue()

	// Input: WAV capture or soundcard.
	var (
		input interface {
			Connect(sink sdr.SinkBase, direct bool) error
			Start()
			Stop()
		}
		err error
	)
	if *inFile != "" {
		var src *wav.Source
		src, err = wav.NewSource(queue, *inFile, 8192)
		if err == nil {
			input = wavInput{src}
		}
	} else {
		var src *portaudio.Source
		src, err = portaudio.NewIQSource(queue, *inputRate, 4096, true)
		if err == nil {
			input = paInput{src}
		}
	}
	if err != nil {
		logger.Error("can not open input", "err", err)
		return -1
	}

	// Processing chain: cast -> base band selection -> FM demod -> deemph.
	cast := sdr.NewAutoCast(sdr.TypeCS16)
	baseband := sdr.NewIQBaseBandRate[int16](cfg.Frequency+cfg.Correction, cfg.FilterWidth,
		cfg.FilterOrder, cfg.AudioRate)
	demod := sdr.NewFMDemod[int16]()
	deemph := sdr.NewFMDeemph[int16](true)

	cast.SetQueue(queue)
	baseband.SetQueue(queue)
	demod.SetQueue(queue)
	deemph.SetQueue(queue)

	if err := input.Connect(cast, true); err != nil {
		logger.Error("can not assemble pipeline", "err", err)
		return -1
	}
	if err := cast.Connect(baseband, false); err != nil {
		logger.Error("can not assemble pipeline", "err", err)
		return -1
	}
	if err := baseband.Connect(demod, true); err != nil {
		logger.Error("can not assemble pipeline", "err", err)
		return -1
	}
	if err := demod.Connect(deemph, true); err != nil {
		logger.Error("can not assemble pipeline", "err", err)
		return -1
	}

	var audio *portaudio.Sink
	if *audioOut {
		audio = portaudio.NewSink()
		defer audio.Close()
		if err := deemph.Connect(audio, false); err != nil {
			logger.Error("can not open audio output", "err", err)
			return -1
		}
	}
	var monitor *wav.Sink
	if *monitorFile != "" {
		monitor, err = wav.NewSink[int16](*monitorFile)
		if err != nil {
			logger.Error("can not open monitor file", "err", err)
			return -1
		}
		if err := deemph.Connect(monitor, false); err != nil {
			logger.Error("can not configure monitor file", "err", err)
			return -1
		}
	}

	// Stop the input before the queue on SIGINT; the queue drains and the
	// wait below returns.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("stopping")
		input.Stop()
		queue.Stop()
	}()

	// The input is activated by the queue's start hook and deactivated by
	// the stop hook, like any other lifecycle-bound collaborator.
	queue.AddStart(input, input.Start)
	queue.AddStop(input, input.Stop)

	queue.Start()
	queue.Wait()

	if monitor != nil {
		if err := monitor.Close(); err != nil {
			logger.Error("can not finalise monitor file", "err", err)
			return -1
		}
	}
	return 0
}

// wavInput and paInput unify the two input adapters behind the tiny start,
// stop and connect surface the pipeline assembly needs.
type wavInput struct{ *wav.Source }

func (w wavInput) Start() { w.Source.Start() }
func (w wavInput) Stop()  { w.Source.Stop() }

type paInput struct{ *portaudio.Source }

func (p paInput) Start() { p.Source.Start() }
func (p paInput) Stop()  { p.Source.Stop() }
