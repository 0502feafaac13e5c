package mutation

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// codeBlock is one fenced code block found in a reply.
type codeBlock struct {
	lang    string
	content string
}

// extractCodeBlocks walks the markdown AST of source and
// returns every fenced code block in document order.
func extractCodeBlocks(source []byte) []codeBlock {
	var blocks []codeBlock

	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		fcb, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var content bytes.Buffer

		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			content.Write(line.Value(source))
		}

		blocks = append(blocks, codeBlock{
			lang:    string(fcb.Language(source)),
			content: content.String(),
		})

		return ast.WalkSkipChildren, nil
	}

	// The walker never returns an error.
	_ = ast.Walk(root, walker)

	return blocks
}

// soleCodeBlock returns the content of the only fenced code
// block in reply. When several blocks exist, a single block
// tagged json wins; otherwise the reply is ambiguous.
func soleCodeBlock(reply string) (string, bool) {
	blocks := extractCodeBlocks([]byte(reply))

	if len(blocks) == 1 {
		return blocks[0].content, true
	}

	var jsonBlocks []codeBlock

	for _, b := range blocks {
		if b.lang == "json" {
			jsonBlocks = append(jsonBlocks, b)
		}
	}

	if len(jsonBlocks) == 1 {
		return jsonBlocks[0].content, true
	}

	return "", false
}
