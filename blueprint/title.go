package blueprint

import (
	"fmt"
	"strings"

	"github.com/aymerick/raymond"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func init() {
	raymond.RegisterHelper("title", func(v interface{}) string {
		return cases.Title(language.English).String(fmt.Sprint(v))
	})
}

// RenderTitle substitutes the chosen dimension values into the blueprint's
// title template. Without a template the title is the blueprint name followed
// by the values in dimension order.
func (b Blueprint) RenderTitle(chosen map[string]string) (string, error) {
	tpl, err := b.Title()
	if err != nil {
		return "", fmt.Errorf("%w: blueprint %q: title template: %v", ErrInvalidConfiguration, b.ID, err)
	}
	if tpl == nil {
		if len(b.Dimensions) == 0 {
			return b.Name, nil
		}
		vals := make([]string, 0, len(b.Dimensions))
		for _, d := range b.Dimensions {
			vals = append(vals, chosen[d.ID])
		}
		return b.Name + ": " + strings.Join(vals, ", "), nil
	}

	ctx := make(map[string]interface{}, len(chosen)+1)
	for k, v := range chosen {
		ctx[k] = v
	}
	ctx["blueprint"] = b.Name
	out, err := tpl.Exec(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: blueprint %q: render title: %v", ErrInvalidConfiguration, b.ID, err)
	}
	return strings.Join(strings.Fields(out), " "), nil
}
