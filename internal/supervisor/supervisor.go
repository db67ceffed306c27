// Package supervisor implements the top-level state machine component
// (C10): Boot -> Handshake -> Idle -> Sweep -> Idle, wiring the ADC
// driver, relay sequencer, Voc/Isc/scale computation, and the sweep loop
// into one coherent per-request flow, then fanning the completed report
// out to whichever telemetry sinks are configured.
package supervisor

import (
	"fmt"
	"sync"

	"github.com/gr-butler/ivtracer/internal/adc"
	"github.com/gr-butler/ivtracer/internal/calib"
	"github.com/gr-butler/ivtracer/internal/config"
	"github.com/gr-butler/ivtracer/internal/isc"
	"github.com/gr-butler/ivtracer/internal/relay"
	"github.com/gr-butler/ivtracer/internal/report"
	"github.com/gr-butler/ivtracer/internal/scale"
	"github.com/gr-butler/ivtracer/internal/sweep"
	"github.com/gr-butler/ivtracer/internal/voc"
)

// State is the supervisor's position in the boot/handshake/idle/sweep
// cycle (§4.10).
type State int

const (
	StateBoot State = iota
	StateHandshake
	StateIdle
	StateSweep
)

func (s State) String() string {
	switch s {
	case StateBoot:
		return "Boot"
	case StateHandshake:
		return "Handshake"
	case StateIdle:
		return "Idle"
	case StateSweep:
		return "Sweep"
	default:
		return "Unknown"
	}
}

// Reader is the two-channel ADC capability shared by voc/isc/sweep.
type Reader interface {
	Read(ch adc.Channel) (uint16, error)
}

// calTolerance is the maximum count spread a DO_SSR_CURR_CAL run may show
// and still be reported valid (§4.11).
const calTolerance = 25

// Supervisor owns one physical unit's control flow: one ADC, one relay
// sequencer, one config store, and the fan-out of completed reports.
type Supervisor struct {
	mu sync.Mutex

	store  *config.Store
	relay  *relay.Sequencer
	reader Reader
	fanout *report.Fanout

	state State
	curve sweep.Curve
}

// New builds a Supervisor in StateBoot.
func New(store *config.Store, rel *relay.Sequencer, reader Reader, fanout *report.Fanout) *Supervisor {
	return &Supervisor{
		store:  store,
		relay:  rel,
		reader: reader,
		fanout: fanout,
		state:  StateBoot,
	}
}

// State returns the supervisor's current state.
func (sv *Supervisor) State() State {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return sv.state
}

// CompleteHandshake transitions Boot -> Handshake -> Idle, mirroring the
// host protocol's initial exchange before any sweep may run (§4.10).
func (sv *Supervisor) CompleteHandshake() {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	sv.state = StateIdle
}

// Prompt returns the status line the host messenger emits before reading
// the next host line, reflecting the supervisor's current phase (§4.10):
// "Ready" is repeated through Boot/Handshake, "Waiting for go message or
// config message" through Idle, and nothing while a sweep is in flight.
func (sv *Supervisor) Prompt() string {
	switch sv.State() {
	case StateBoot, StateHandshake:
		return "Ready"
	case StateIdle:
		return "Waiting for go message or config message"
	default:
		return ""
	}
}

// HandleReady processes an inbound "Ready" line, advancing Boot/Handshake
// to Idle (§4.10, §6). Received in any other state it is a no-op, since
// only Handshake's advance is gated on it.
func (sv *Supervisor) HandleReady() error {
	sv.mu.Lock()
	if sv.state == StateBoot || sv.state == StateHandshake {
		sv.state = StateIdle
	}
	sv.mu.Unlock()
	return nil
}

// ApplyConfig forwards one inbound "Config <key> [...]" line to the config
// store (§4.3, §4.10). Valid during Handshake or Idle; the messenger never
// calls this mid-sweep since RunSweep holds StateSweep for the duration of
// one synchronous call.
func (sv *Supervisor) ApplyConfig(key string, args []string) ([]string, error) {
	return sv.store.Apply(key, args)
}

// HandleGo processes an inbound "Go" line: runs one sweep and renders the
// resulting report as the host protocol's point-stream lines (§4.10).
func (sv *Supervisor) HandleGo() ([]string, error) {
	rep, err := sv.RunSweep()
	if err != nil {
		return nil, err
	}
	return report.Lines(rep), nil
}

// RunSweep executes one full Idle -> Sweep -> Idle cycle: sample Voc with
// the panel at open circuit, stabilize Isc under a controlled short,
// derive the plot scale, run the sweep loop, return the relay to bleed,
// and fan the resulting report out to every configured sink.
func (sv *Supervisor) RunSweep() (report.SweepReport, error) {
	sv.mu.Lock()
	if sv.state != StateIdle {
		sv.mu.Unlock()
		return report.SweepReport{}, fmt.Errorf("supervisor: RunSweep called in state %s, want Idle", sv.state)
	}
	sv.state = StateSweep
	sv.mu.Unlock()

	defer func() {
		sv.mu.Lock()
		sv.state = StateIdle
		sv.mu.Unlock()
	}()

	tun := sv.store.Tunables()

	sv.relay.ReturnToBleed()
	vocResult, err := voc.Sample(sv.reader, config.VocPollingLoops, uint16(config.MinVocADCDefault))
	if err != nil {
		return report.SweepReport{}, fmt.Errorf("supervisor: voc sample: %w", err)
	}

	// §4.5/§8 scenario 2: no panel means no capacitor to charge. The short
	// is never armed and Isc polling never runs; point 0 degrades to the
	// origin with a timed-out (single-point) sweep.
	var iscResult isc.Result
	if vocResult.Connected {
		sv.relay.ArmShort()
		iscResult, err = isc.Stabilize(sv.reader, sv.relay, tun.MaxIscPoll, uint16(tun.IscStableADC), uint16(tun.MinIscADC)+vocResult.NoiseFloorMin)
		if err != nil {
			sv.relay.ReturnToBleed()
			return report.SweepReport{}, fmt.Errorf("supervisor: isc stabilize: %w", err)
		}
	} else {
		iscResult = isc.Result{PollTimedOut: true}
	}

	vScale, iScale := scale.Compute(iscResult.Isc, vocResult.Voc, tun.AspectWidth, tun.AspectHeight)

	sv.curve.Reset()
	sv.curve.PtNum = 1
	sv.curve.V[0] = int16(iscResult.Point0Voltage)
	sv.curve.I[0] = int16(iscResult.Point0Current)

	result := sweep.Run(&sv.curve, sv.reader, sweep.Params{
		MaxIVPoints: sv.store.EffectiveMaxIVPoints(),
		MaxDiscards: tun.MaxDiscards,
		MaxIVMeas:   config.MaxIVMeasDefault,
		VScale:      vScale,
		IScale:      iScale,
		Isc:         iscResult.Isc,
		Voc:         vocResult.Voc,
		DoneCh1:     vocResult.DoneCh1,
		PollTimeout: iscResult.PollTimedOut,
	})

	sv.relay.ReturnToBleed()

	points := make([]report.Point, result.PtNum)
	for i := 0; i < result.PtNum; i++ {
		points[i] = report.Point{V: sv.curve.V[i], I: sv.curve.I[i]}
	}

	rep := report.SweepReport{
		Isc:           iscResult.Isc,
		Voc:           vocResult.Voc,
		VScale:        vScale,
		IScale:        iScale,
		Points:        points,
		NoiseFloorMin: vocResult.NoiseFloorMin,
		NoiseFloorMax: vocResult.NoiseFloorMax,
		IscPollLoops:  iscResult.Iterations,
		MinManhattan:  result.MinManhattan,
		NumMeas:       result.NumMeas,
		ElapsedUsecs:  result.ElapsedUsecs,
	}

	if sv.fanout != nil {
		sv.fanout.Observe(rep)
	}

	return rep, nil
}

// RunSSRCurrentCal satisfies config.Calibrator: it arms the short path,
// samples the current channel over the calibration window, releases the
// short, and reports the run as valid only if no sample saturated the ADC
// and the max-min spread is at most 1% of the mean (§4.11).
func (sv *Supervisor) RunSSRCurrentCal() (float64, bool, error) {
	sv.relay.ArmShort()
	res, err := calib.Run(sv.reader, calib.RealSleeper{}, calib.DefaultDuration, calib.DefaultInterval)
	sv.relay.ReturnToBleed()
	if err != nil {
		return 0, false, err
	}
	valid := res.MaxCounts < adc.MaxCount && float64(res.MaxCounts-res.MinCounts) <= res.MeanCounts/100
	return res.MeanCounts, valid, nil
}
