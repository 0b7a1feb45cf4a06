package config

// clampInt returns v limited to the inclusive range [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Normalize clamps out-of-range values back into their supported ranges and
// repairs inverted bounds. Resize requests are clamped rather than rejected,
// so the configured bounds themselves must always be sane.
func (c *Config) Normalize() {
	d := Default()

	if c.Session.MaxSessions < 1 {
		c.Session.MaxSessions = d.Session.MaxSessions
	}
	if c.Session.LockTimeoutMs < 1 {
		c.Session.LockTimeoutMs = d.Session.LockTimeoutMs
	}
	if c.Session.OutputBufferSize < 4096 {
		c.Session.OutputBufferSize = d.Session.OutputBufferSize
	}
	if c.Session.TraceBufferEntries < 1 {
		c.Session.TraceBufferEntries = d.Session.TraceBufferEntries
	}
	if c.Session.ErrorBufferEntries < 1 {
		c.Session.ErrorBufferEntries = d.Session.ErrorBufferEntries
	}
	if c.Session.RecordingMaxFrames < 1 {
		c.Session.RecordingMaxFrames = d.Session.RecordingMaxFrames
	}

	c.Terminal.MinCols = clampInt(c.Terminal.MinCols, 1, 500)
	c.Terminal.MaxCols = clampInt(c.Terminal.MaxCols, c.Terminal.MinCols, 500)
	c.Terminal.MinRows = clampInt(c.Terminal.MinRows, 1, 200)
	c.Terminal.MaxRows = clampInt(c.Terminal.MaxRows, c.Terminal.MinRows, 200)
	c.Terminal.DefaultCols = clampInt(c.Terminal.DefaultCols, c.Terminal.MinCols, c.Terminal.MaxCols)
	c.Terminal.DefaultRows = clampInt(c.Terminal.DefaultRows, c.Terminal.MinRows, c.Terminal.MaxRows)
	if c.Terminal.ScrollbackLines < 0 {
		c.Terminal.ScrollbackLines = 0
	}

	if c.Wait.PollIntervalMs < 1 {
		c.Wait.PollIntervalMs = d.Wait.PollIntervalMs
	}
	if c.Wait.DefaultTimeoutMs < 1 {
		c.Wait.DefaultTimeoutMs = d.Wait.DefaultTimeoutMs
	}
	if c.Wait.StableSamples < 1 {
		c.Wait.StableSamples = d.Wait.StableSamples
	}

	if !IsValidLogLevel(c.Logging.Level) {
		c.Logging.Level = d.Logging.Level
	}
}

// ClampSize limits a requested terminal size to the configured bounds.
func (c *TerminalConfig) ClampSize(cols, rows int) (int, int) {
	return clampInt(cols, c.MinCols, c.MaxCols), clampInt(rows, c.MinRows, c.MaxRows)
}
