package pipeline

import "strings"

// SplitIngredients splits a raw ingredients string on top-level commas,
// semicolons, bullets and line breaks. Separators inside parentheses or
// brackets belong to the ingredient ("Vitamin D3 (as cholecalciferol,
// from lanolin)").
func SplitIngredients(raw string) []string {
	out := []string{}
	var cur strings.Builder
	depth := 0
	flush := func() {
		item := strings.TrimSpace(cur.String())
		item = strings.TrimRight(item, ".;, ")
		item = strings.TrimSpace(strings.TrimLeft(item, "-*• "))
		if item != "" {
			out = append(out, item)
		}
		cur.Reset()
	}

	for _, r := range raw {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case ',', ';', '\n', '•':
			if depth == 0 {
				flush()
				continue
			}
		}
		cur.WriteRune(r)
	}
	flush()
	return out
}
