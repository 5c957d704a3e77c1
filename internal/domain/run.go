package domain

import (
	"fmt"
	"strconv"
	"time"
)

// CrossingResult is one row of the final model output: a crossing's identity,
// capacity, watershed and maximum safe return period under each scenario.
type CrossingResult struct {
	BarrierID string       `json:"barrier_id"`
	NAACCID   int          `json:"naacc_id"`
	Lat       float64      `json:"lat"`
	Long      float64      `json:"long"`
	County    string       `json:"county"`
	Flags     int          `json:"flags"`
	Area      float64      `json:"culvert_area_sqm"`
	Capacity  float64      `json:"capacity_cms"`
	WSArea    float64      `json:"ws_area_sqkm"`
	Tc        float64      `json:"tc_hr"`
	CN        float64      `json:"cn"`
	RPCurrent ReturnPeriod `json:"rp_current"`
	RPFuture  ReturnPeriod `json:"rp_future"`
}

// RunStatus is the terminal state of a region run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunSummary describes one finished region run. It is what output sinks
// receive.
type RunSummary struct {
	RunID       string           `json:"run_id"`
	Region      string           `json:"region"`
	OutputDir   string           `json:"output_dir"`
	Status      RunStatus        `json:"status"`
	Error       string           `json:"error,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
	InvalidRows int              `json:"invalid_rows"`
	Files       []string         `json:"files"`
	Results     []CrossingResult `json:"results,omitempty"`
}

// Succeeded reports whether the run produced a complete set of outputs.
func (s RunSummary) Succeeded() bool { return s.Status == RunSucceeded }

// MarshalText renders the period as its table value.
func (p ReturnPeriod) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText parses a table value written by MarshalText.
func (p *ReturnPeriod) UnmarshalText(b []byte) error {
	s := string(b)
	if s == FailsSmallestStorm.String() {
		*p = FailsSmallestStorm
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fmt.Errorf("invalid return period %q", s)
	}
	*p = ReturnPeriod(n)
	return nil
}
