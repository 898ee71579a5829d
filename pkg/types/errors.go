package types

import (
	"errors"
	"fmt"
	"strings"
)

// invalidConfigError signals a schema or shape failure in a document.
type invalidConfigError struct{ msg string }

func (e invalidConfigError) Error() string { return "invalid config: " + e.msg }

// ErrInvalidConfig constructs an InvalidConfig error.
func ErrInvalidConfig(format string, a ...any) error {
	return invalidConfigError{msg: fmt.Sprintf(format, a...)}
}

// IsInvalidConfig reports whether err is an InvalidConfig error.
func IsInvalidConfig(err error) bool {
	var e invalidConfigError
	return errors.As(err, &e)
}

type duplicateNameError struct{ name string }

func (e duplicateNameError) Error() string { return "duplicate prompt name: " + e.name }

func ErrDuplicateName(name string) error { return duplicateNameError{name: name} }

// IsDuplicateName reports whether err is a DuplicateName error.
func IsDuplicateName(err error) bool {
	var e duplicateNameError
	return errors.As(err, &e)
}

type unknownPromptError struct{ name string }

func (e unknownPromptError) Error() string { return "unknown prompt: " + e.name }

func ErrUnknownPrompt(name string) error { return unknownPromptError{name: name} }

// IsUnknownPrompt reports whether err is an UnknownPrompt error.
func IsUnknownPrompt(err error) bool {
	var e unknownPromptError
	return errors.As(err, &e)
}

type unresolvedSymbolError struct {
	symbol string
	prompt string
}

func (e unresolvedSymbolError) Error() string {
	if e.prompt == "" {
		return "unresolved symbol: " + e.symbol
	}
	return fmt.Sprintf("unresolved symbol %q in prompt %q", e.symbol, e.prompt)
}

func ErrUnresolvedSymbol(symbol, prompt string) error {
	return unresolvedSymbolError{symbol: symbol, prompt: prompt}
}

// IsUnresolvedSymbol reports whether err is an UnresolvedSymbol error.
func IsUnresolvedSymbol(err error) bool {
	var e unresolvedSymbolError
	return errors.As(err, &e)
}

type missingOutputError struct {
	dependency string
	prompt     string
}

func (e missingOutputError) Error() string {
	return fmt.Sprintf("prompt %q references %s.output but %q has no output", e.prompt, e.dependency, e.dependency)
}

func ErrMissingOutput(dependency, prompt string) error {
	return missingOutputError{dependency: dependency, prompt: prompt}
}

// IsMissingOutput reports whether err is a MissingOutput error.
func IsMissingOutput(err error) bool {
	var e missingOutputError
	return errors.As(err, &e)
}

// CycleError reports a cyclic dependency between prompts. Cycle starts and
// ends with the same prompt name.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return "cyclic dependency: " + strings.Join(e.Cycle, "→")
}

// IsCyclicDependency reports whether err is a CyclicDependency error.
func IsCyclicDependency(err error) bool {
	var e *CycleError
	return errors.As(err, &e)
}

type unknownParserError struct {
	prompt string
	tried  []string
}

func (e unknownParserError) Error() string {
	if len(e.tried) == 0 {
		return fmt.Sprintf("no parser for prompt %q: no model set and no default_model", e.prompt)
	}
	return fmt.Sprintf("no parser for prompt %q (tried %s)", e.prompt, strings.Join(e.tried, ", "))
}

func ErrUnknownParser(prompt string, tried ...string) error {
	return unknownParserError{prompt: prompt, tried: tried}
}

// IsUnknownParser reports whether err is an UnknownParser error.
func IsUnknownParser(err error) bool {
	var e unknownParserError
	return errors.As(err, &e)
}

// AdapterError wraps a failure raised by a parser while executing a prompt.
type AdapterError struct {
	Prompt string
	Parser string
	Err    error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s failed on prompt %q: %v", e.Parser, e.Prompt, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// IsAdapterError reports whether err is an AdapterError.
func IsAdapterError(err error) bool {
	var e *AdapterError
	return errors.As(err, &e)
}

// IsCoreError reports errors raised by the document model, resolver or
// registry. They fail a call cleanly and are never recorded as outputs.
func IsCoreError(err error) bool {
	return IsInvalidConfig(err) || IsDuplicateName(err) || IsUnknownPrompt(err) ||
		IsUnresolvedSymbol(err) || IsMissingOutput(err) || IsCyclicDependency(err) ||
		IsUnknownParser(err)
}

// ErrorOutput converts err into an error Output. The traceback lists the
// chain of wrapped errors, outermost first.
func ErrorOutput(err error) Output {
	ename := "Error"
	switch {
	case IsAdapterError(err):
		ename = "AdapterError"
	case IsUnresolvedSymbol(err):
		ename = "UnresolvedSymbol"
	case IsMissingOutput(err):
		ename = "MissingOutput"
	case IsCyclicDependency(err):
		ename = "CyclicDependency"
	case IsUnknownParser(err):
		ename = "UnknownParser"
	case IsUnknownPrompt(err):
		ename = "UnknownPrompt"
	case IsInvalidConfig(err):
		ename = "InvalidConfig"
	}
	var tb []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		tb = append(tb, e.Error())
	}
	return NewError(ename, err.Error(), tb)
}
