// Package domain defines core data models, interfaces and the error taxonomy
// shared across the module. It contains plain types (wire/state) and
// contracts (interfaces) only; behaviour lives in protocol and services.
package domain
