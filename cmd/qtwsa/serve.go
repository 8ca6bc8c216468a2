package main

import (
	"time"

	"github.com/lox/qtwsa/internal/api"
	"github.com/lox/qtwsa/internal/config"
	"github.com/lox/qtwsa/internal/narrative"
)

const narrativeMaxAge = 7 * 24 * time.Hour

type ServeCmd struct {
	Dataset   config.Dataset   `embed:""`
	Strategy  config.Strategy  `embed:""`
	Selection config.Selection `embed:""`
	HTTP      config.HTTP      `embed:""`
}

func (c *ServeCmd) Run(rc *runContext) error {
	p, err := buildPipeline(c.Dataset, c.Strategy, rc.logger)
	if err != nil {
		return err
	}

	srv := api.NewServer(p.service, p.ds, p.engine.Catalog(), c.Selection, c.HTTP, rc.logger)

	cache, err := narrative.NewCache(c.HTTP.NarrativeDir, narrativeMaxAge)
	if err != nil {
		return err
	}
	var summarizer narrative.Summarizer
	if s, err := narrative.NewOpenAISummarizer(); err != nil {
		rc.logger.Info("narrative generation disabled; serving cached narratives only", "reason", err)
	} else {
		summarizer = s
	}
	srv.SetNarratives(narrative.NewGenerator(summarizer, cache, rc.logger))

	return srv.Run(rc.ctx)
}
