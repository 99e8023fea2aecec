package config

// Overrides carries command-line values that take precedence over the config
// file. Nil fields leave the file (or default) value untouched.
type Overrides struct {
	WatchDir      *string
	SecondaryDir  *string
	HoldingDir    *string
	Verbose       *bool
	KeepProcessed *bool
	Workers       *int
	Backend       *string
	APIBind       *string
	LogLevel      *string
}

// ApplyOverrides copies every non-nil override into the config.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.WatchDir != nil {
		c.Paths.WatchDir = *o.WatchDir
	}
	if o.SecondaryDir != nil {
		c.Paths.SecondaryDir = *o.SecondaryDir
	}
	if o.HoldingDir != nil {
		c.Paths.HoldingDir = *o.HoldingDir
	}
	if o.Verbose != nil {
		c.Watch.Verbose = *o.Verbose
	}
	if o.KeepProcessed != nil {
		c.Verify.KeepProcessed = *o.KeepProcessed
	}
	if o.Workers != nil {
		c.Watch.Workers = *o.Workers
	}
	if o.Backend != nil {
		c.Watch.Backend = *o.Backend
	}
	if o.APIBind != nil {
		c.API.Bind = *o.APIBind
	}
	if o.LogLevel != nil {
		c.Logging.Level = *o.LogLevel
	}
}
