package types

import "errors"

// SymbolKind represents the kind of language construct a symbol names.
type SymbolKind string

const (
	KindFunction SymbolKind = "function"
	KindMethod   SymbolKind = "method"
	KindType     SymbolKind = "type"
	KindClass    SymbolKind = "class"
	KindConst    SymbolKind = "const"
	KindVar      SymbolKind = "var"
)

// Symbol is a named declaration extracted from source text. Line is
// zero-based, matching chunk line addressing.
type Symbol struct {
	Name string
	Kind SymbolKind
	Line int
}

// ValidateKind checks if the symbol kind is one of the known kinds.
func (s *Symbol) ValidateKind() error {
	switch s.Kind {
	case KindFunction, KindMethod, KindType, KindClass, KindConst, KindVar:
		return nil
	default:
		return errors.New("invalid symbol kind")
	}
}

// Validate performs validation of the symbol.
func (s *Symbol) Validate() error {
	if s.Name == "" {
		return errors.New("symbol name is required")
	}
	if err := s.ValidateKind(); err != nil {
		return err
	}
	if s.Line < 0 {
		return errors.New("symbol line must be non-negative")
	}
	return nil
}
