package qa

import "strings"

// ExtensionVariants returns the candidate file extensions of a URL, in
// order of significance. Compound extensions come first, so for
// "coins.data.1996.csv.zip" it returns ["csv.zip", "zip"]. A filename
// with no dot yields no variants. Query strings are ignored.
func ExtensionVariants(rawURL string) []string {
	name := rawURL
	if i := strings.Index(name, "?"); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	parts := strings.Split(name, ".")

	var variants []string
	for _, n := range []int{2, 1} {
		if len(parts) > n {
			variants = append(variants, strings.Join(parts[len(parts)-n:], "."))
		}
	}
	return variants
}
