package scenario

// Tick conversions for the scenario's minute/hour-scaled fields. One tick is
// one simulated second.

// LoadTicks is the loading service time in ticks.
func (vt *VehicleType) LoadTicks() int64 { return MinutesToTicks(vt.LoadTimeMins) }

// UnloadTicks is the unloading/handoff service time in ticks.
func (vt *VehicleType) UnloadTicks() int64 { return MinutesToTicks(vt.UnloadTimeMins) }

// RepairTicks is the duration of one field repair attempt in ticks.
func (vt *VehicleType) RepairTicks() int64 { return MinutesToTicks(vt.RepairTimeMins) }

// RetryTicks is the delay between failed repair attempts in ticks.
func (vt *VehicleType) RetryTicks() int64 { return MinutesToTicks(vt.RetryDelayMins) }

// TreatmentTicks is the per-casualty treatment time at a medical node.
// Defaults to 30 minutes when the scenario leaves it unset.
func (n *Node) TreatmentTicks() int64 {
	if n.TreatmentTimeMins <= 0 {
		return MinutesToTicks(30)
	}
	return MinutesToTicks(n.TreatmentTimeMins)
}

// HorizonTicks is the run horizon in ticks.
func (c *Config) HorizonTicks() int64 { return HoursToTicks(c.HorizonHours) }

// FatigueThresholdTicks is the duty-time threshold in ticks.
func (c *Config) FatigueThresholdTicks() int64 { return HoursToTicks(c.FatigueThresholdHours) }

// RestTicks is the mandatory rest duration in ticks.
func (c *Config) RestTicks() int64 { return HoursToTicks(c.RestDurationHours) }

// MTBFTicks is the mean time between random breakdowns in ticks.
func (c *Config) MTBFTicks() int64 { return HoursToTicks(c.MTBFHours) }

// MaintenanceIntervalTicks is the spacing between scheduled service windows.
// Defaults to 80% of the MTBF when left unset.
func (c *Config) MaintenanceIntervalTicks() int64 {
	if c.MaintenanceIntervalHours > 0 {
		return HoursToTicks(c.MaintenanceIntervalHours)
	}
	return HoursToTicks(c.MTBFHours * 0.8)
}

// MaintenanceDurationTicks is the length of one service window. Defaults to
// two hours.
func (c *Config) MaintenanceDurationTicks() int64 {
	if c.MaintenanceDurationHours > 0 {
		return HoursToTicks(c.MaintenanceDurationHours)
	}
	return HoursToTicks(2)
}
