package extract

import (
	"fmt"
	"strings"

	"github.com/hbomb79/mediascan/internal/ffmpeg"
	"github.com/hbomb79/mediascan/pkg/logger"
)

// DefaultAdapters is the adapter order used when none is configured.
var DefaultAdapters = []string{ContainerSource, TagsSource}

// Options holds the settings required to construct the built-in adapters.
type Options struct {
	FfprobeBinaryPath  string
	ExiftoolBinaryPath string
}

type factory func(Options) Adapter

var factories = map[string]factory{
	ContainerSource: func(o Options) Adapter {
		return NewContainerInspector(ffmpeg.NewProber(o.FfprobeBinaryPath))
	},
	TagsSource:      func(Options) Adapter { return NewTagReader() },
	MediaInfoSource: func(o Options) Adapter { return NewMediaInfoReader(o.ExiftoolBinaryPath) },
	ExifSource:      func(Options) Adapter { return NewExifReader() },
}

// KnownAdapters returns the names of all built-in adapters.
func KnownAdapters() []string {
	return []string{ContainerSource, TagsSource, MediaInfoSource, ExifSource}
}

// Build constructs a Chain from the adapter names provided, preserving
// their order. Unknown or duplicated names are an error. Adapters whose
// external capability is missing are dropped from the chain with a warning.
func Build(names []string, opts Options) (*Chain, error) {
	if len(names) == 0 {
		names = DefaultAdapters
	}

	seen := make(map[string]bool, len(names))
	adapters := make([]Adapter, 0, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		build, ok := factories[name]
		if !ok {
			return nil, fmt.Errorf("unknown adapter '%s' (known adapters: %s)", raw, strings.Join(KnownAdapters(), ", "))
		}
		if seen[name] {
			return nil, fmt.Errorf("adapter '%s' specified more than once", name)
		}
		seen[name] = true

		adapter := build(opts)
		if prober, ok := adapter.(Prober); ok {
			if err := prober.Available(); err != nil {
				log.Emit(logger.WARNING, "Adapter %s disabled: %v", name, err)
				continue
			}
		}

		adapters = append(adapters, adapter)
	}

	if len(adapters) == 0 {
		log.Emit(logger.WARNING, "No metadata adapters are available; only file system information will be reported")
	}

	return NewChain(adapters...), nil
}

// Includes returns true if the adapter names provided contain the name given.
func Includes(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), name) {
			return true
		}
	}

	return false
}
