// Package types defines the shared domain types for the function-calling
// engine: conversation context, function calls and results, registered
// function metadata, and the structured error model.
//
// All other packages in this module depend on types; types depends on
// nothing but the standard library.
package types
