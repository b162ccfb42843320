package orchestrator

import (
	"strings"

	"server/internal/domain"
	"server/internal/providers/prompt"
)

// pipeline runs the stages between location acquisition and polling for one
// run. Name-resolution and weather failures are absorbed with defaults; only
// submission failures are fatal here.
func (c *Controller) pipeline(seq uint64, loc domain.ResolvedLocation) {
	ctx := c.ctx

	if !c.advance(seq, domain.StageResolvingName, "Resolving place name") {
		return
	}
	place, err := c.opts.Geocoder.Reverse(ctx, loc.Coordinate)
	if err != nil {
		c.opts.Logger.Warn().Err(err).
			Float64("lat", loc.Latitude).
			Float64("lon", loc.Longitude).
			Msg("reverse geocode failed, continuing unnamed")
	} else {
		loc.Name = place.Name
		loc.Country = place.Country
	}
	if !c.apply(seq, func() {
		cp := loc
		c.location = &cp
	}) {
		return
	}

	if !c.advance(seq, domain.StageFetchingWeather, "Fetching weather") {
		return
	}
	snap, err := c.opts.Weather.Current(ctx, loc.Coordinate)
	if err != nil {
		c.opts.Logger.Warn().Err(err).Msg("weather fetch failed, substituting unknown conditions")
		snap = domain.UnknownWeather()
	}
	if !c.apply(seq, func() {
		cp := snap
		c.weather = &cp
	}) {
		return
	}

	c.composeAndSubmit(seq)
}

// composeAndSubmit is the shared tail of a fresh run and a reroll: compose the
// prompt, submit the job, start polling.
func (c *Controller) composeAndSubmit(seq uint64) {
	ctx := c.ctx

	c.mu.Lock()
	if seq != c.seq || c.location == nil || c.weather == nil {
		c.mu.Unlock()
		return
	}
	loc := *c.location
	weather := *c.weather
	subject := c.subject
	custom := c.customSubject
	c.setStageLocked(domain.StageComposingPrompt, "Composing prompt")
	c.mu.Unlock()

	// The deterministic prompt is computed first so every enhancement
	// failure has a ready fallback.
	base := c.opts.Composer.Compose(loc, weather, subject, custom)
	final := base
	if c.opts.Enhancer != nil {
		enhanced, meta, err := c.opts.Enhancer.Enhance(ctx, prompt.EnhanceRequest{
			Location:    loc.Name,
			Country:     loc.Country,
			Weather:     weather,
			Subject:     subject,
			Coordinates: loc.Coordinate,
			BasePrompt:  base,
		})
		if err != nil || strings.TrimSpace(enhanced) == "" {
			c.opts.Logger.Warn().Err(err).Msg("prompt enhancement failed, using deterministic prompt")
		} else {
			final = enhanced
			if meta.TimeOfDay != "" || meta.LightingConditions != "" {
				c.opts.Logger.Debug().
					Str("time_of_day", meta.TimeOfDay).
					Str("lighting", meta.LightingConditions).
					Msg("prompt enhanced with scene context")
			}
		}
	}
	if !c.apply(seq, func() { c.prompt = final }) {
		return
	}

	if !c.advance(seq, domain.StageSubmittingJob, "Submitting generation job") {
		return
	}
	job, err := c.opts.Jobs.Submit(ctx, final)
	if err != nil {
		msg := strings.TrimSpace(err.Error())
		if msg == "" {
			msg = "Failed to submit generation job"
		}
		c.fail(seq, msg)
		return
	}
	if !c.apply(seq, func() {
		cp := job
		c.job = &cp
	}) {
		return
	}

	c.startPolling(seq, job.ID)
}
