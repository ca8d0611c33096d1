package extract

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/hashicorp/go-multierror"
	"github.com/hbomb79/mediascan/internal/media"
	"github.com/hbomb79/mediascan/pkg/logger"
)

var log = logger.Get("Extract")

// Chain is an ordered list of adapters. The order is significant: when
// results are merged, a later adapter's values take precedence over
// an earlier adapter's for the same field.
type Chain struct {
	adapters []Adapter
}

func NewChain(adapters ...Adapter) *Chain {
	return &Chain{adapters: adapters}
}

func (c *Chain) Adapters() []Adapter {
	out := make([]Adapter, len(c.adapters))
	copy(out, c.adapters)
	return out
}

// Names returns the source names of the adapters in this chain, in order.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.adapters))
	for _, a := range c.adapters {
		names = append(names, a.Name())
	}

	return names
}

// Schema returns the ordered set of fields that every record produced
// using this chain will contain: the file stat fields, every field declared
// by the adapters (in adapter order, first declaration wins the position),
// the top-level error field and one error field per adapter.
func (c *Chain) Schema() []string {
	seen := make(map[string]struct{})
	schema := make([]string, 0, len(media.StatFields)+len(c.adapters)*8)
	add := func(k string) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		schema = append(schema, k)
	}

	for _, f := range media.StatFields {
		add(f)
	}
	for _, a := range c.adapters {
		for _, f := range a.Fields() {
			add(f)
		}
	}

	add(media.FieldError)
	for _, a := range c.adapters {
		add(media.SourceErrorField(a.Name()))
	}

	return schema
}

// Run executes every applicable adapter against the file, in order. Adapters
// which do not accept the file are skipped and produce no result. A panic
// inside an adapter is recovered and reported as a failed Result for that
// adapter; later adapters still run.
func (c *Chain) Run(ctx context.Context, file media.File) []Result {
	results := make([]Result, 0, len(c.adapters))
	for _, adapter := range c.adapters {
		if !adapter.Accepts(file) {
			continue
		}

		result := runAdapter(ctx, adapter, file)
		if result.Failed() {
			log.Emit(logger.DEBUG, "Adapter %s failed for %s: %v", adapter.Name(), file.Path, result.Err)
		}

		results = append(results, result)
	}

	return results
}

func runAdapter(ctx context.Context, adapter Adapter, file media.File) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Emit(logger.ERROR, "Adapter %s panicked while processing %s: %v\n%s", adapter.Name(), file.Path, r, debug.Stack())
			result = Failure(adapter.Name(), fmt.Errorf("adapter panicked: %v", r))
		}
	}()

	result = adapter.Extract(ctx, file)
	result.Source = adapter.Name()
	if result.Failed() {
		if _, ok := result.Err.(*SourceError); !ok {
			result = Failure(adapter.Name(), result.Err)
		}
	}

	return result
}

// Close releases any resources held by the adapters in this chain (for
// example, long-running exiftool processes).
func (c *Chain) Close() error {
	var errs *multierror.Error
	for _, a := range c.adapters {
		if closer, ok := a.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("failed to close adapter %s: %w", a.Name(), err))
			}
		}
	}

	return errs.ErrorOrNil()
}
