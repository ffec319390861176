package kb

import (
	_ "embed"
	"fmt"
)

//go:embed machining_db.json
var defaultDocument []byte

// DefaultDocument returns the raw bytes of the bundled knowledge base
func DefaultDocument() []byte {
	return append([]byte(nil), defaultDocument...)
}

// Default returns the bundled knowledge base
func Default() *KnowledgeBase {
	k, err := Parse(defaultDocument)
	if err != nil {
		panic(fmt.Sprintf("bundled knowledge base is invalid: %v", err))
	}
	return k
}
