// Package config loads serializer settings from YAML or HCL documents.
//
// A document names policies by the String form of the options enums and
// binds wire names for "$type" tags to Go types:
//
//	version: "1"
//	type_name_handling: auto
//	preserve_references: objects
//	reference_loop_handling: error
//	missing_member_handling: error
//	max_depth: 32
//	coercions: [safe_number, text_number, datetime]
//	naming:
//	  strategy: camel
//	  process_dictionary_keys: true
//	aliases:
//	  - name: square
//	    type: example.com/shapes.Square
//
// The same document in HCL:
//
//	version            = "1"
//	type_name_handling = "auto"
//	max_depth          = 32
//	coercions          = ["safe_number", "text_number"]
//
//	naming {
//	  strategy = "camel"
//	}
//
//	alias "square" {
//	  type = "example.com/shapes.Square"
//	}
//
// Alias targets are looked up in the binder registry the document is
// applied to, so the types must be registered first.
package config
