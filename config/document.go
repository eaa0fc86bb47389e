package config

// Document is the on-disk form of serializer.Settings. Empty fields keep the
// setting they are applied to.
type Document struct {
	Version string `yaml:"version,omitempty" hcl:"version,optional"`

	TypeNameHandling       string `yaml:"type_name_handling,omitempty" hcl:"type_name_handling,optional"`
	PreserveReferences     string `yaml:"preserve_references,omitempty" hcl:"preserve_references,optional"`
	ReferenceLoopHandling  string `yaml:"reference_loop_handling,omitempty" hcl:"reference_loop_handling,optional"`
	MissingMemberHandling  string `yaml:"missing_member_handling,omitempty" hcl:"missing_member_handling,optional"`
	NullValueHandling      string `yaml:"null_value_handling,omitempty" hcl:"null_value_handling,optional"`
	DefaultValueHandling   string `yaml:"default_value_handling,omitempty" hcl:"default_value_handling,optional"`
	MetadataHandling       string `yaml:"metadata_handling,omitempty" hcl:"metadata_handling,optional"`
	ConstructorHandling    string `yaml:"constructor_handling,omitempty" hcl:"constructor_handling,optional"`
	ObjectCreationHandling string `yaml:"object_creation_handling,omitempty" hcl:"object_creation_handling,optional"`
	UnknownTypeHandling    string `yaml:"unknown_type_handling,omitempty" hcl:"unknown_type_handling,optional"`

	MaxDepth  *int     `yaml:"max_depth,omitempty" hcl:"max_depth,optional"`
	Coercions []string `yaml:"coercions,omitempty" hcl:"coercions,optional"`

	Naming  *Naming `yaml:"naming,omitempty" hcl:"naming,block"`
	Aliases []Alias `yaml:"aliases,omitempty" hcl:"alias,block"`
}

// Naming selects a naming strategy: "default", "camel", "snake" or "kebab".
type Naming struct {
	Strategy              string `yaml:"strategy" hcl:"strategy"`
	OverrideSpecified     bool   `yaml:"override_specified,omitempty" hcl:"override_specified,optional"`
	ProcessDictionaryKeys bool   `yaml:"process_dictionary_keys,omitempty" hcl:"process_dictionary_keys,optional"`
}

// Alias binds a wire type name to a registered Go type.
type Alias struct {
	Name string `yaml:"name" hcl:"name,label"`
	// Type is the binder name of the target, e.g. "example.com/shapes.Square".
	Type string `yaml:"type" hcl:"type"`
}
