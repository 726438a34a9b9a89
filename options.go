package analyze

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/majewsky/wininstall-analyze/model"
)

// defaultMaxHeaderSize is the §5 ceiling on decompressed NSIS/Inno
// headers ("default: 64 MiB").
const defaultMaxHeaderSize = 64 * 1024 * 1024

// defaultMaxRecursionDepth is the §5 ceiling on bounded-depth walks
// ("default 64").
const defaultMaxRecursionDepth = 64

// Options carries the engine's only tunables. The core has no
// persisted state and no config file (spec.md §6); every knob is set
// per call via functional options.
type Options struct {
	MaxHeaderSize        int64
	MaxRecursionDepth    int
	Logger               *logrus.Entry
	LastResortArchitecture bool
	ZipEntrySelector     ZipEntrySelector
}

// ZipEntrySelector is consulted when a zip archive's central directory
// contains more than one plausible nested installer and the dispatcher
// cannot auto-select a single entry by extension-class count (spec.md
// §4.7: "Otherwise defer to a caller-provided selector ... the only
// non-core collaborator the core requires").
type ZipEntrySelector func(candidates []string) ([]string, error)

// Option configures Options.
type Option func(*Options)

func defaultOptions() *Options {
	discard := logrus.New()
	discard.Out = io.Discard
	return &Options{
		MaxHeaderSize:     defaultMaxHeaderSize,
		MaxRecursionDepth: defaultMaxRecursionDepth,
		Logger:            logrus.NewEntry(discard),
	}
}

// WithMaxHeaderSize overrides the decompressed-header size ceiling.
func WithMaxHeaderSize(n int64) Option {
	return func(o *Options) { o.MaxHeaderSize = n }
}

// WithMaxRecursionDepth overrides the bounded-walk recursion ceiling.
func WithMaxRecursionDepth(n int) Option {
	return func(o *Options) { o.MaxRecursionDepth = n }
}

// WithLogger routes the engine's recovered-error diagnostics (§7:
// Interpretation-class errors are "logged, not fatal") into the
// caller's own logging pipeline instead of a discard logger.
func WithLogger(entry *logrus.Entry) Option {
	return func(o *Options) { o.Logger = entry }
}

// WithLastResortArchitecture enables the NSIS "re-parse an embedded PE"
// fallback described in spec.md §9's Open Questions; it is off by
// default because it is expensive and error-prone.
func WithLastResortArchitecture(enabled bool) Option {
	return func(o *Options) { o.LastResortArchitecture = enabled }
}

// WithZipEntrySelector installs the caller-provided selector used when
// a zip archive's nested-installer candidates are ambiguous.
func WithZipEntrySelector(sel ZipEntrySelector) Option {
	return func(o *Options) { o.ZipEntrySelector = sel }
}

// limits projects Options down to the subset every internal/format/*
// decoder actually consumes.
func (o *Options) limits() *model.Limits {
	return &model.Limits{
		MaxHeaderSize:          o.MaxHeaderSize,
		MaxRecursionDepth:      o.MaxRecursionDepth,
		Logger:                 o.Logger,
		LastResortArchitecture: o.LastResortArchitecture,
	}
}
