package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mithrel/hashmark/internal/editor"
	"github.com/mithrel/hashmark/pkg/fragment"
)

type decoded struct {
	Text   string          `json:"text"`
	Method fragment.Method `json:"method"`
	Title  string          `json:"title,omitempty"`
	Valid  bool            `json:"valid"`
}

func writeDecoded(w io.Writer, format, text string, method fragment.Method) error {
	switch format {
	case "", "plain":
		if _, err := io.WriteString(w, text); err != nil {
			return err
		}
		if !strings.HasSuffix(text, "\n") {
			_, err := io.WriteString(w, "\n")
			return err
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(decoded{Text: text, Method: method, Title: editor.Title(text), Valid: text != ""})
	default:
		return fmt.Errorf("unknown output %q (plain|json)", format)
	}
}
