package serializer

import (
	"log/slog"

	"graph-serializer/binder"
	"graph-serializer/contract"
	"graph-serializer/convert"
	"graph-serializer/naming"
	"graph-serializer/options"
	"graph-serializer/primitive"
	"graph-serializer/reference"
)

// Settings steer one Serializer.
type Settings struct {
	TypeNameHandling       options.TypeNameHandling
	PreserveReferences     options.PreserveReferences
	ReferenceLoopHandling  options.ReferenceLoopHandling
	MissingMemberHandling  options.MissingMemberHandling
	NullValueHandling      options.NullValueHandling
	DefaultValueHandling   options.DefaultValueHandling
	MetadataHandling       options.MetadataHandling
	ConstructorHandling    options.ConstructorHandling
	ObjectCreationHandling options.ObjectCreationHandling
	UnknownTypeHandling    options.UnknownTypeHandling

	// MaxDepth limits nesting of containers, 0 means unlimited.
	MaxDepth int
	// Coercions enables primitive conversions on read.
	Coercions primitive.CategoryEnum

	// Naming selects the shared contract resolver when Contracts is nil.
	Naming    naming.Strategy
	Contracts *contract.Resolver

	Converters        convert.Chain
	Binder            binder.Binder
	ReferenceResolver reference.Factory

	// Error is the last handler asked about a recoverable error.
	Error func(ctx *ErrorContext) Recovery

	Logger *slog.Logger
}

// DefaultSettings returns the settings used by Marshal and Unmarshal.
func DefaultSettings() Settings {
	return Settings{
		MaxDepth:  64,
		Coercions: primitive.DefaultCategories,
		Naming:    naming.Default{},
	}
}

func (s Settings) withDefaults() Settings {
	if s.Naming == nil {
		s.Naming = naming.Default{}
	}

	if s.Contracts == nil {
		s.Contracts = contract.Shared(s.Naming, contract.OptOut)
	}

	if s.Binder == nil {
		s.Binder = binder.NewRegistry()
	}

	if s.ReferenceResolver == nil {
		s.ReferenceResolver = reference.NewFactory()
	}

	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	return s
}
