package parsers

import (
	"fmt"

	"github.com/username/cryptogains/src/parsers/gemini"
)

func GetParser(source string) (Parser, error) {
	switch source {
	case "gemini":
		return gemini.NewParser(), nil
	default:
		return nil, fmt.Errorf("no parser available for source: %s", source)
	}
}
