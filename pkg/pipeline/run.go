package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/jmylchreest/recipescale/internal/logger"
	"github.com/jmylchreest/recipescale/internal/output"
	"github.com/jmylchreest/recipescale/pkg/assistant"
	"github.com/jmylchreest/recipescale/pkg/cleaner"
	"github.com/jmylchreest/recipescale/pkg/fetcher"
	"github.com/jmylchreest/recipescale/pkg/recipe"
)

// errMatchOnly is returned by Run on a pipeline built without an LLM.
var errMatchOnly = errors.New("pipeline was built for product matching only")

// Run processes the recipe at url for servings and returns the result.
// The first failing stage stops the run with a *StageError.
func (p *Pipeline) Run(ctx context.Context, url string, servings int) (*recipe.ResultBundle, error) {
	if p.extractor == nil {
		return nil, &StageError{Stage: StageExtracting, Err: errMatchOnly}
	}
	if servings <= 0 {
		// Rejected before any network call; the scaler would refuse it anyway.
		_, err := recipe.ScaleFactor(recipe.DefaultServings, servings)
		return nil, &StageError{Stage: StageScaling, Err: &assistant.ScalingError{Err: err}}
	}

	var usage recipe.TokenUsage
	logger.Info("processing recipe", "url", url, "servings", servings)

	// Fetching
	var content fetcher.Content
	err := p.stage(ctx, StageFetching, func() error {
		var err error
		content, err = p.fetcher.Fetch(ctx, url, fetcher.Options{Timeout: p.cfg.FetchTimeout})
		return err
	})
	if err != nil {
		return nil, err
	}
	text := p.clean(url, content)

	// Extracting
	var r *recipe.Recipe
	err = p.stage(ctx, StageExtracting, func() error {
		var u recipe.TokenUsage
		var err error
		r, u, err = p.extractor.Extract(ctx, url, text)
		usage.Add(u)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Scaling
	var scaled []recipe.Ingredient
	err = p.stage(ctx, StageScaling, func() error {
		var u recipe.TokenUsage
		var err error
		scaled, u, err = p.scaler.Scale(ctx, r, servings)
		usage.Add(u)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Building the shopping list
	var list *recipe.ShoppingList
	err = p.stage(ctx, StageBuildingList, func() error {
		var u recipe.TokenUsage
		var err error
		list, u, err = p.builder.Build(ctx, scaled, servings)
		usage.Add(u)
		return err
	})
	if err != nil {
		return nil, err
	}

	factor, _ := recipe.ScaleFactor(r.Servings, servings)
	bundle := &recipe.ResultBundle{
		RecipeURL:         url,
		RecipeName:        r.Name,
		RecipeText:        r.Text,
		OriginalServings:  r.Servings,
		TargetServings:    servings,
		ScaleFactor:       factor,
		ScaledIngredients: scaled,
		ShoppingList:      list.Items,
		StorageTips:       list.StorageTips,
		EstimatedCost:     list.EstimatedCost,
		Metadata: recipe.Metadata{
			RunID:       uuid.NewString(),
			GeneratedAt: time.Now().UTC(),
			Provider:    p.provider.Name(),
			Model:       p.provider.Model(),
			Usage:       usage,
		},
	}

	// Matching
	if p.cfg.SearchEnabled && p.matcher != nil {
		if err := p.match(ctx, bundle); err != nil {
			return nil, err
		}
	} else {
		logger.Debug("product matching disabled")
	}

	logger.Info("recipe processed",
		"recipe", bundle.RecipeName,
		"scale_factor", bundle.ScaleFactor,
		"items", len(bundle.ShoppingList),
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens)

	return bundle, nil
}

// RunAndWrite runs the pipeline and writes the result to path in the
// configured format. Nothing is written if any earlier stage fails.
func (p *Pipeline) RunAndWrite(ctx context.Context, url string, servings int, path string) (*recipe.ResultBundle, error) {
	bundle, err := p.Run(ctx, url, servings)
	if err != nil {
		return nil, err
	}
	if err := p.Write(ctx, bundle, path); err != nil {
		return bundle, err
	}
	return bundle, nil
}

// Write persists bundle to path as the writing stage.
func (p *Pipeline) Write(ctx context.Context, bundle *recipe.ResultBundle, path string) error {
	return p.stage(ctx, StageWriting, func() error {
		return output.WriteBundle(path, bundle, p.cfg.Format)
	})
}

// Rematch reruns product matching over an existing bundle and returns an
// updated copy. Everything except ProductMatches and the metadata timestamp
// and retailer is kept.
func (p *Pipeline) Rematch(ctx context.Context, bundle *recipe.ResultBundle) (*recipe.ResultBundle, error) {
	if p.matcher == nil {
		return nil, &StageError{Stage: StageMatching, Err: errors.New("product matching is not configured")}
	}
	updated := *bundle
	updated.ProductMatches = nil
	if err := p.match(ctx, &updated); err != nil {
		return nil, err
	}
	updated.Metadata.GeneratedAt = time.Now().UTC()
	return &updated, nil
}

func (p *Pipeline) match(ctx context.Context, bundle *recipe.ResultBundle) error {
	return p.stage(ctx, StageMatching, func() error {
		matches, err := p.matcher.Match(ctx, bundle.ShoppingList)
		if err != nil {
			return err
		}
		if matches == nil {
			matches = []recipe.ItemMatch{}
		}
		bundle.ProductMatches = matches
		bundle.Metadata.Retailer = p.searcher.Name()
		return nil
	})
}

// stage runs fn as stage s: it checks for cancellation first, notifies the
// observer and wraps any failure in a *StageError.
func (p *Pipeline) stage(ctx context.Context, s Stage, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: s, Err: err}
	}

	p.notify(Event{Stage: s})
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	p.notify(Event{Stage: s, Done: true, Duration: elapsed, Err: err})

	if err != nil {
		logger.Debug("stage failed", "stage", s.String(), "duration", elapsed, "error", err)
		return &StageError{Stage: s, Err: err}
	}
	logger.Debug("stage complete", "stage", s.String(), "duration", elapsed)
	return nil
}

func (p *Pipeline) notify(e Event) {
	if p.observer != nil {
		p.observer(e)
	}
}

// clean converts fetched HTML into the text sent to the model, falling back
// to the fetcher's visible text when the cleaner fails or yields nothing.
func (p *Pipeline) clean(url string, content fetcher.Content) string {
	cl := p.cleaner
	if cl == nil {
		var err error
		cl, err = cleaner.New(p.cfg.Cleaner, url)
		if err != nil {
			logger.Warn("invalid cleaner, using page text", "cleaner", p.cfg.Cleaner, "error", err)
			return content.Text
		}
	}

	start := time.Now()
	cleaned, err := cl.Clean(content.HTML)
	if err != nil || strings.TrimSpace(cleaned) == "" {
		logger.Debug("cleaner produced nothing usable, using page text",
			"cleaner", cl.Name(),
			"error", err)
		return content.Text
	}

	logger.Debug("content cleaned",
		"cleaner", cl.Name(),
		"input_size", humanize.Bytes(uint64(len(content.HTML))),
		"output_size", humanize.Bytes(uint64(len(cleaned))),
		"duration", time.Since(start))

	return cleaned
}
