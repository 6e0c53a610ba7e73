package models

import (
	"fmt"
	"slices"
	"strings"
)

const maxMoodBytes = 16

// Validate checks the fields a coupon must carry before it is stored.
func (c *Coupon) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return fmt.Errorf("%w: startDate and endDate are required", ErrValidation)
	}
	r, err := ParseRarity(string(c.Rarity))
	if err != nil {
		return err
	}
	c.Rarity = r
	if c.StartTime == "" {
		c.StartTime = DefaultStartTime
	}
	if c.EndTime == "" {
		c.EndTime = DefaultEndTime
	}
	start, end, err := c.Window()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("%w: coupon ends before it starts", ErrValidation)
	}
	return nil
}

// Validate rejects values outside the enumerations the client offers.
func (info ModularInfo) Validate() error {
	if info.AgeRange != "" && !slices.Contains(AgeRanges, info.AgeRange) {
		return fmt.Errorf("%w: unknown age range %q", ErrValidation, info.AgeRange)
	}
	if info.Availability != "" && !slices.Contains(AvailabilityOptions, info.Availability) {
		return fmt.Errorf("%w: unknown availability %q", ErrValidation, info.Availability)
	}
	mood := strings.TrimSpace(info.CurrentMood)
	if len(mood) > maxMoodBytes || strings.ContainsAny(mood, " \t\n") {
		return fmt.Errorf("%w: mood must be a single emoji token", ErrValidation)
	}
	return nil
}
