// Package resolver expands {{ symbol }} templates in prompt inputs and
// orders prompts by their x.output references.
//
// Files by concern:
//   - template.go: template parsing (dotted-identifier grammar)
//   - resolver.go: Resolver, LRU template cache, strict/lenient expansion
//   - scope.go:    symbol table layering and reserved <prompt>.input/.output
//   - graph.go:    dependency graph, topological order, cycle reporting
package resolver
