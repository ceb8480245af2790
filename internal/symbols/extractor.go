package symbols

import (
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"

	"github.com/tmacey/codesearch-mcp/internal/chunker"
	"github.com/tmacey/codesearch-mcp/pkg/types"
)

// Extractor pulls named declarations out of source text. Go files go
// through the real parser; other supported languages use line-level
// patterns. An unsupported language yields an empty list, never an error,
// so symbol extraction can not block indexing.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the symbols declared in content. Lines are zero-based to
// match chunk addressing.
func (e *Extractor) Extract(filePath, content string) ([]types.Symbol, error) {
	language := chunker.LanguageFor(filePath)
	switch language {
	case "go":
		if syms, ok := extractGo(content); ok {
			return syms, nil
		}
		// Files the parser rejects still get a rough pattern scan.
		return extractPatterns(content, patternSets["go"]), nil
	case "python", "rust", "javascript", "typescript", "java":
		return extractPatterns(content, patternSets[language]), nil
	default:
		return nil, nil
	}
}

// extractGo walks the AST for functions, methods, types, consts, and vars.
func extractGo(content string) ([]types.Symbol, bool) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "src.go", content, parser.SkipObjectResolution)
	if err != nil {
		return nil, false
	}

	var symbols []types.Symbol
	line := func(pos token.Pos) int {
		return fset.Position(pos).Line - 1
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			kind := types.KindFunction
			if d.Recv != nil && len(d.Recv.List) > 0 {
				kind = types.KindMethod
			}
			symbols = append(symbols, types.Symbol{
				Name: d.Name.Name,
				Kind: kind,
				Line: line(d.Pos()),
			})
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					symbols = append(symbols, types.Symbol{
						Name: s.Name.Name,
						Kind: types.KindType,
						Line: line(s.Pos()),
					})
				case *ast.ValueSpec:
					kind := types.KindVar
					if d.Tok == token.CONST {
						kind = types.KindConst
					}
					for _, name := range s.Names {
						if name.Name == "_" {
							continue
						}
						symbols = append(symbols, types.Symbol{
							Name: name.Name,
							Kind: kind,
							Line: line(name.Pos()),
						})
					}
				}
			}
		}
	}
	return symbols, true
}

// pattern pairs a declaration regexp with the kind it produces. The first
// capture group is the symbol name.
type pattern struct {
	re   *regexp.Regexp
	kind types.SymbolKind
}

var patternSets = map[string][]pattern{
	"go": {
		{regexp.MustCompile(`^func\s+(?:\([^)]*\)\s+)?(\w+)`), types.KindFunction},
		{regexp.MustCompile(`^type\s+(\w+)`), types.KindType},
	},
	"python": {
		{regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)`), types.KindFunction},
		{regexp.MustCompile(`^\s*class\s+(\w+)`), types.KindClass},
	},
	"rust": {
		{regexp.MustCompile(`^\s*(?:pub\s+)?fn\s+(\w+)`), types.KindFunction},
		{regexp.MustCompile(`^\s*(?:pub\s+)?(?:struct|enum|trait)\s+(\w+)`), types.KindType},
		{regexp.MustCompile(`^\s*(?:pub\s+)?(?:const|static)\s+(\w+)`), types.KindConst},
	},
	"javascript": {
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)`), types.KindFunction},
		{regexp.MustCompile(`^\s*(?:export\s+)?class\s+(\w+)`), types.KindClass},
		{regexp.MustCompile(`^\s*(?:export\s+)?const\s+(\w+)\s*=\s*(?:async\s*)?\(`), types.KindFunction},
	},
	"typescript": {
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)`), types.KindFunction},
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:abstract\s+)?class\s+(\w+)`), types.KindClass},
		{regexp.MustCompile(`^\s*(?:export\s+)?interface\s+(\w+)`), types.KindType},
		{regexp.MustCompile(`^\s*(?:export\s+)?const\s+(\w+)\s*=\s*(?:async\s*)?\(`), types.KindFunction},
	},
	"java": {
		{regexp.MustCompile(`^\s*(?:public\s+|private\s+|protected\s+)?(?:abstract\s+|final\s+)?(?:class|interface|enum)\s+(\w+)`), types.KindClass},
		{regexp.MustCompile(`^\s*(?:public|private|protected)\s+(?:static\s+)?(?:final\s+)?[\w<>\[\]]+\s+(\w+)\s*\(`), types.KindMethod},
	},
}

// extractPatterns scans line by line against the language's patterns. The
// first pattern that matches a line wins.
func extractPatterns(content string, patterns []pattern) []types.Symbol {
	var symbols []types.Symbol
	for i, line := range chunker.SplitLines(content) {
		for _, p := range patterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			symbols = append(symbols, types.Symbol{
				Name: m[1],
				Kind: p.kind,
				Line: i,
			})
			break
		}
	}
	return symbols
}
