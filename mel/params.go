package mel

import (
	"errors"
	"fmt"
)

// ErrBadParams is returned by Params.Validate.
var ErrBadParams = errors.New("invalid mel parameters")

// Params describe the short time Fourier transform and the mel filterbank.
type Params struct {
	SampleRate int     `mapstructure:"sample_rate" msgpack:"sample_rate"`
	NFFT       int     `mapstructure:"n_fft" msgpack:"n_fft"`
	HopLength  int     `mapstructure:"hop_length" msgpack:"hop_length"`
	NumMels    int     `mapstructure:"num_mels" msgpack:"num_mels"`
	FMin       float64 `mapstructure:"fmin" msgpack:"fmin"`
	FMax       float64 `mapstructure:"fmax" msgpack:"fmax"` // 0 means SampleRate/2
	TopDB      float64 `mapstructure:"top_db" msgpack:"top_db"` // 0 disables clipping
}

// DefaultParams returns 22.05 kHz audio, 2048 point FFT, hop 512 and 80 mel bands.
func DefaultParams() Params {
	return Params{
		SampleRate: 22050,
		NFFT:       2048,
		HopLength:  512,
		NumMels:    80,
		FMin:       0,
		FMax:       0,
		TopDB:      80,
	}
}

// Bins is the number of non-negative frequency bins, NFFT/2+1.
func (p Params) Bins() int {
	return p.NFFT/2 + 1
}

func (p Params) fmax() float64 {
	if p.FMax <= 0 {
		return float64(p.SampleRate) / 2
	}
	return p.FMax
}

// Validate checks that the parameters describe a usable transform.
func (p Params) Validate() error {
	switch {
	case p.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d", ErrBadParams, p.SampleRate)
	case p.NFFT < 2 || p.NFFT%2 != 0:
		return fmt.Errorf("%w: n_fft %d must be even", ErrBadParams, p.NFFT)
	case p.HopLength <= 0 || p.HopLength > p.NFFT:
		return fmt.Errorf("%w: hop length %d", ErrBadParams, p.HopLength)
	case p.NumMels <= 0:
		return fmt.Errorf("%w: %d mel bands", ErrBadParams, p.NumMels)
	case p.FMin < 0 || p.fmax() <= p.FMin || p.fmax() > float64(p.SampleRate)/2:
		return fmt.Errorf("%w: frequency range %g..%g", ErrBadParams, p.FMin, p.fmax())
	case p.TopDB < 0:
		return fmt.Errorf("%w: top_db %g", ErrBadParams, p.TopDB)
	}
	return nil
}
