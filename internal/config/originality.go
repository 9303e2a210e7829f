package config

import (
	"time"

	"github.com/nao1215/dupescan/internal/engine"
)

// OriginalityConfig is the "originality" section of the config file.
// Unset fields keep the current value.
type OriginalityConfig struct {
	ShingleSize      *int           `yaml:"shingleSize,omitempty"`
	MinContentLength *int           `yaml:"minContentLength,omitempty"`
	MinTokenLength   *int           `yaml:"minTokenLength,omitempty"`
	HashAlgorithm    string         `yaml:"hashAlgorithm,omitempty"`
	ExactThreshold   *float64       `yaml:"exactThreshold,omitempty"`
	NearThreshold    *float64       `yaml:"nearThreshold,omitempty"`
	RelatedThreshold *float64       `yaml:"relatedThreshold,omitempty"`
	ExactPenalty     *float64       `yaml:"exactPenalty,omitempty"`
	NearPenalty      *float64       `yaml:"nearPenalty,omitempty"`
	PageTimeout      *time.Duration `yaml:"pageTimeout,omitempty"`
}

// Apply copies every set field onto opts.
func (o OriginalityConfig) Apply(opts *engine.Options) {
	if o.ShingleSize != nil {
		opts.ShingleSize = *o.ShingleSize
	}
	if o.MinContentLength != nil {
		opts.MinContentLength = *o.MinContentLength
	}
	if o.MinTokenLength != nil {
		opts.MinTokenLength = *o.MinTokenLength
	}
	if o.HashAlgorithm != "" {
		opts.HashAlgorithm = o.HashAlgorithm
	}
	if o.ExactThreshold != nil {
		opts.ExactThreshold = *o.ExactThreshold
	}
	if o.NearThreshold != nil {
		opts.NearThreshold = *o.NearThreshold
	}
	if o.RelatedThreshold != nil {
		opts.RelatedThreshold = *o.RelatedThreshold
	}
	if o.ExactPenalty != nil {
		opts.ExactPenalty = *o.ExactPenalty
	}
	if o.NearPenalty != nil {
		opts.NearPenalty = *o.NearPenalty
	}
	if o.PageTimeout != nil {
		opts.Timeout = *o.PageTimeout
	}
}
