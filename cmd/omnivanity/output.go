package main

import (
	"io"

	"github.com/sugawarayuuta/sonnet"

	"github.com/Amr-9/omnivanity/pkg/generator"
)

// jsonResult is the --json rendering of a search outcome.
type jsonResult struct {
	Network       string  `json:"network"`
	Ticker        string  `json:"ticker"`
	Address       string  `json:"address,omitempty"`
	PrivateKey    string  `json:"private_key,omitempty"`
	Backend       string  `json:"backend,omitempty"`
	Pattern       string  `json:"pattern"`
	Mode          string  `json:"mode"`
	KeysTested    uint64  `json:"keys_tested"`
	TimeSecs      float64 `json:"time_secs"`
	KeysPerSecond float64 `json:"keys_per_second"`
	Error         string  `json:"error,omitempty"`
}

// writeJSON writes out as one JSON object per line.
func writeJSON(w io.Writer, cfg *generator.Config, out outcome) error {
	r := jsonResult{
		Network:    cfg.Network.String(),
		Ticker:     cfg.Network.Ticker(),
		Pattern:    cfg.Pattern,
		Mode:       cfg.Mode.String(),
		KeysTested: out.Attempts,
		TimeSecs:   out.Elapsed.Seconds(),
	}
	if r.TimeSecs > 0 {
		r.KeysPerSecond = float64(out.Attempts) / r.TimeSecs
	}
	if out.Found {
		r.Address = out.Result.Address
		r.PrivateKey = out.Result.PrivateKey
		r.Backend = out.Result.Backend
	} else {
		r.Error = "no match found within limits"
	}

	data, err := sonnet.Marshal(r)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
