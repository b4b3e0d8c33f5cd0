package importer

import "strings"

// GenerateDescription builds the default catalog description for an
// imported item from its name and category label.
func GenerateDescription(name, category string) string {
	name = strings.TrimSpace(name)
	category = strings.TrimSpace(category)
	if category == "" {
		return name + " para doação."
	}
	return name + " para doação. Categoria: " + category
}
