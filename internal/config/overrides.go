// ABOUTME: Command-line overrides for the process tunables
// ABOUTME: Only flags the user actually set replace values loaded from the file

package config

import (
	"fmt"
	"time"
)

// Overrides carries flag values. Nil fields were not set on the command line.
type Overrides struct {
	GRPCAddr      *string
	HTTPAddr      *string
	MaxSessions   *int
	RenewAfter    *time.Duration
	ZombieAfter   *time.Duration
	SweepInterval *time.Duration
	Reflection    *bool
	AskCooldown   *time.Duration
	LogLevel      *string
}

// Apply copies every set override into c and revalidates.
func (c *Config) Apply(o Overrides) error {
	if o.GRPCAddr != nil {
		c.Server.GRPCAddr = *o.GRPCAddr
	}
	if o.HTTPAddr != nil {
		c.Server.HTTPAddr = *o.HTTPAddr
	}
	if o.MaxSessions != nil {
		c.Sessions.MaxSessions = *o.MaxSessions
	}
	if o.RenewAfter != nil {
		c.Sessions.RenewAfter = *o.RenewAfter
	}
	if o.ZombieAfter != nil {
		c.Sessions.ZombieAfter = *o.ZombieAfter
	}
	if o.SweepInterval != nil {
		c.Sessions.SweepInterval = *o.SweepInterval
	}
	if o.Reflection != nil {
		c.Server.Reflection = *o.Reflection
	}
	if o.AskCooldown != nil {
		c.Cooldown.AskInterval = *o.AskCooldown
	}
	if o.LogLevel != nil {
		c.Logging.Level = *o.LogLevel
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("applying flags: %w", err)
	}
	return nil
}
